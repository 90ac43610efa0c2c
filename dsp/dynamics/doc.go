// Package dynamics provides the sample-accurate lookahead limiter core.
//
// Included components:
//   - RMSDetector: sliding-window RMS loudness estimate with an
//     incrementally maintained running sum and a dB silence floor.
//   - EnvelopeFollower: single-pole exponential gain smoother with
//     asymmetric attack and release time constants.
//   - LookaheadLimiter: per-channel limiter combining the detector, the
//     envelope follower, and a fixed-latency lookahead delay line. It
//     never amplifies, and applies gain reduction before the loud audio
//     reaches the output.
//
// All per-sample operations are allocation-free and non-blocking, suitable
// for real-time audio callbacks. The optional "fastmath" build tag swaps
// the transcendental functions in the hot path for faster approximations.
package dynamics
