package dynamics

import (
	"fmt"
	"math"
)

// EnvelopeFollower smooths an instantaneous target gain into the gain that
// is actually applied, using a single-pole exponential step with separate
// attack and release time constants. Attack engages when the target demands
// more reduction than the current gain; release governs recovery toward
// unity.
type EnvelopeFollower struct {
	sampleRate float64

	attackSec  float64
	releaseSec float64

	attackCoeff  float64
	releaseCoeff float64

	gain float64
}

// NewEnvelopeFollower returns a follower at unity gain.
func NewEnvelopeFollower(sampleRate, attackSec, releaseSec float64) (*EnvelopeFollower, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("envelope follower %w", err)
	}

	e := &EnvelopeFollower{
		sampleRate: sampleRate,
		gain:       1.0,
	}

	if err := e.SetAttack(attackSec); err != nil {
		return nil, err
	}

	if err := e.SetRelease(releaseSec); err != nil {
		return nil, err
	}

	return e, nil
}

// SetAttack sets the attack time constant in seconds.
func (e *EnvelopeFollower) SetAttack(sec float64) error {
	if err := ValidateAttack(sec); err != nil {
		return err
	}

	e.attackSec = sec
	e.attackCoeff = smoothingCoeff(sec, e.sampleRate)

	return nil
}

// SetRelease sets the release time constant in seconds.
func (e *EnvelopeFollower) SetRelease(sec float64) error {
	if err := ValidateRelease(sec); err != nil {
		return err
	}

	e.releaseSec = sec
	e.releaseCoeff = smoothingCoeff(sec, e.sampleRate)

	return nil
}

// Attack returns the attack time constant in seconds.
func (e *EnvelopeFollower) Attack() float64 { return e.attackSec }

// Release returns the release time constant in seconds.
func (e *EnvelopeFollower) Release() float64 { return e.releaseSec }

// Gain returns the current smoothed gain.
func (e *EnvelopeFollower) Gain() float64 { return e.gain }

// Step moves the current gain toward target and returns the new gain.
// Targets below the current gain (more reduction) move at the attack rate,
// all others at the release rate.
func (e *EnvelopeFollower) Step(target float64) float64 {
	coeff := e.releaseCoeff
	if target < e.gain {
		coeff = e.attackCoeff
	}

	e.gain += (target - e.gain) * coeff

	return e.gain
}

// Reset returns the follower to unity gain.
func (e *EnvelopeFollower) Reset() {
	e.gain = 1.0
}

// smoothingCoeff is the standard discrete-time single-pole coefficient:
// an input step reaches ~63% of its final value after one time constant.
func smoothingCoeff(timeConstantSec, sampleRate float64) float64 {
	return 1.0 - math.Exp(-1.0/(timeConstantSec*sampleRate))
}
