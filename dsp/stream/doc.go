// Package stream provides the block-synchronous multichannel driver for
// the lookahead limiter core.
//
// A Processor owns one independent limiter per channel and processes
// fixed-size blocks delivered by a host audio callback. The processing
// path is allocation-free and lock-free; parameter changes cross from the
// control context to the audio context as an atomic snapshot applied at
// block boundaries.
package stream
