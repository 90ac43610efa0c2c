package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-limiter/dsp/delay"
)

const (
	// DefaultThresholdDB is the default limiting ceiling.
	DefaultThresholdDB = -1.0
	// DefaultAttackSec is the default attack time constant.
	DefaultAttackSec = 0.015
	// DefaultReleaseSec is the default release time constant.
	DefaultReleaseSec = 0.080
	// DefaultRMSWindowSec is the default RMS detector window.
	DefaultRMSWindowSec = 0.005
	// DefaultLookaheadSec is the default lookahead delay.
	DefaultLookaheadSec = 0.010

	minThresholdDB = -60.0
	maxThresholdDB = 0.0
	minAttackSec   = 0.0001
	maxAttackSec   = 1.0
	minReleaseSec  = 0.0001
	maxReleaseSec  = 5.0
	minRMSWindow   = 0.0001
	maxRMSWindow   = 1.0
	minLookahead   = 0.0001
	maxLookahead   = 0.2
)

// LookaheadLimiter bounds the loudness of a single audio channel to a dB
// ceiling. It measures RMS loudness of the incoming sample, smooths the
// resulting target gain through an envelope follower, and applies the gain
// to a sample delayed by the lookahead length, so reduction is in place
// before the loud audio reaches the output. The limiter never amplifies:
// the smoothed gain stays in (0, 1].
//
// The lookahead length is fixed at construction. Changing it would change
// the latency contract downstream consumers rely on.
type LookaheadLimiter struct {
	sampleRate   float64
	thresholdDB  float64
	rmsWindowSec float64
	lookaheadSec float64

	lookahead *delay.Lookahead
	detector  *RMSDetector
	envelope  *EnvelopeFollower
}

// NewLookaheadLimiter creates a limiter with the given fixed lookahead and
// default parameters.
func NewLookaheadLimiter(sampleRate, lookaheadSec float64) (*LookaheadLimiter, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("lookahead limiter %w", err)
	}

	if err := ValidateLookahead(lookaheadSec); err != nil {
		return nil, err
	}

	la, err := delay.NewLookahead(secondsToSamples(lookaheadSec, sampleRate))
	if err != nil {
		return nil, fmt.Errorf("lookahead limiter delay init: %w", err)
	}

	det, err := NewRMSDetector(secondsToSamples(DefaultRMSWindowSec, sampleRate))
	if err != nil {
		return nil, fmt.Errorf("lookahead limiter detector init: %w", err)
	}

	env, err := NewEnvelopeFollower(sampleRate, DefaultAttackSec, DefaultReleaseSec)
	if err != nil {
		return nil, err
	}

	l := &LookaheadLimiter{
		sampleRate:   sampleRate,
		thresholdDB:  DefaultThresholdDB,
		rmsWindowSec: DefaultRMSWindowSec,
		lookaheadSec: lookaheadSec,
		lookahead:    la,
		detector:     det,
		envelope:     env,
	}

	return l, nil
}

// SetThreshold sets the limiting ceiling in dB.
func (l *LookaheadLimiter) SetThreshold(dB float64) error {
	if err := ValidateThreshold(dB); err != nil {
		return err
	}

	l.thresholdDB = dB

	return nil
}

// SetAttack sets the attack time constant in seconds.
func (l *LookaheadLimiter) SetAttack(sec float64) error {
	return l.envelope.SetAttack(sec)
}

// SetRelease sets the release time constant in seconds.
func (l *LookaheadLimiter) SetRelease(sec float64) error {
	return l.envelope.SetRelease(sec)
}

// SetRMSWindow sets the RMS window length in seconds, reallocating the
// detector ring and losing its window history. This is not safe to call
// concurrently with processing; streaming hosts defer it to a block
// boundary.
func (l *LookaheadLimiter) SetRMSWindow(sec float64) error {
	if err := ValidateRMSWindow(sec); err != nil {
		return err
	}

	samples := secondsToSamples(sec, l.sampleRate)
	if samples == l.detector.WindowLen() {
		l.rmsWindowSec = sec
		return nil
	}

	det, err := NewRMSDetector(samples)
	if err != nil {
		return err
	}

	l.rmsWindowSec = sec
	l.detector = det

	return nil
}

// Threshold returns the limiting ceiling in dB.
func (l *LookaheadLimiter) Threshold() float64 { return l.thresholdDB }

// Attack returns the attack time constant in seconds.
func (l *LookaheadLimiter) Attack() float64 { return l.envelope.Attack() }

// Release returns the release time constant in seconds.
func (l *LookaheadLimiter) Release() float64 { return l.envelope.Release() }

// RMSWindow returns the RMS window length in seconds.
func (l *LookaheadLimiter) RMSWindow() float64 { return l.rmsWindowSec }

// Lookahead returns the lookahead delay in seconds.
func (l *LookaheadLimiter) Lookahead() float64 { return l.lookaheadSec }

// LookaheadSamples returns the fixed latency in samples.
func (l *LookaheadLimiter) LookaheadSamples() int { return l.lookahead.Len() }

// SampleRate returns the sample rate in Hz.
func (l *LookaheadLimiter) SampleRate() float64 { return l.sampleRate }

// Gain returns the current smoothed gain in (0, 1].
func (l *LookaheadLimiter) Gain() float64 { return l.envelope.Gain() }

// GainReductionDB returns the current gain reduction as a non-negative dB
// amount (0 means unity).
func (l *LookaheadLimiter) GainReductionDB() float64 {
	g := l.envelope.Gain()
	if g >= 1.0 || g <= 0 {
		return 0
	}

	return -20 * mathLog10(g)
}

// ProcessSample processes one sample and returns the gain-adjusted delayed
// sample. During ring fill-up the current sample is emitted instead of a
// delayed one.
func (l *LookaheadLimiter) ProcessSample(input float64) float64 {
	delayed, gain := l.step(input)
	return delayed * gain
}

// step runs one sample through the detector chain and returns the delayed
// program sample and the smoothed gain to apply to it.
func (l *LookaheadLimiter) step(input float64) (delayed, gain float64) {
	delayed = l.lookahead.Process(input)

	loudness := l.detector.Update(input)

	target := 1.0
	if loudness > l.thresholdDB {
		target = mathPower10((l.thresholdDB - loudness) / 20.0)
	}

	gain = l.envelope.Step(target)

	return delayed, gain
}

// ProcessBlock processes one block. Delayed samples are written into out
// and per-sample gains into gains, then applied with a vectorized multiply.
// All three slices must have equal length; gains is caller-provided scratch
// so the hot path never allocates. A zero-length block is a no-op.
func (l *LookaheadLimiter) ProcessBlock(out, in, gains []float64) {
	n := len(in)
	if n == 0 {
		return
	}

	if len(out) < n {
		n = len(out)
	}
	if len(gains) < n {
		n = len(gains)
	}

	for i := 0; i < n; i++ {
		out[i], gains[i] = l.step(in[i])
	}

	vecmath.MulBlockInPlace(out[:n], gains[:n])
}

// ProcessInPlace processes a block in place one sample at a time.
func (l *LookaheadLimiter) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = l.ProcessSample(buf[i])
	}
}

// Reset clears all channel state: lookahead ring, detector window, and
// envelope gain.
func (l *LookaheadLimiter) Reset() {
	l.lookahead.Reset()
	l.detector.Reset()
	l.envelope.Reset()
}

func secondsToSamples(sec, sampleRate float64) int {
	samples := int(math.Round(sec * sampleRate))
	if samples < 1 {
		samples = 1
	}

	return samples
}

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !isFinite(sampleRate) {
		return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}

	return nil
}

func isFinite(v float64) bool {
	return !(math.IsNaN(v) || math.IsInf(v, 0))
}
