package stream

import "github.com/cwbudde/algo-limiter/dsp/dynamics"

// Params is the complete set of runtime-adjustable limiter parameters.
// The lookahead length is deliberately absent: it is fixed at construction
// because changing it would break the latency contract.
type Params struct {
	ThresholdDB  float64
	AttackSec    float64
	ReleaseSec   float64
	RMSWindowSec float64
}

// DefaultParams returns the limiter defaults.
func DefaultParams() Params {
	return Params{
		ThresholdDB:  dynamics.DefaultThresholdDB,
		AttackSec:    dynamics.DefaultAttackSec,
		ReleaseSec:   dynamics.DefaultReleaseSec,
		RMSWindowSec: dynamics.DefaultRMSWindowSec,
	}
}

// Validate checks all fields against the limiter's accepted ranges.
func (p Params) Validate() error {
	if err := dynamics.ValidateThreshold(p.ThresholdDB); err != nil {
		return err
	}

	if err := dynamics.ValidateAttack(p.AttackSec); err != nil {
		return err
	}

	if err := dynamics.ValidateRelease(p.ReleaseSec); err != nil {
		return err
	}

	return dynamics.ValidateRMSWindow(p.RMSWindowSec)
}

// ParamUpdate is a partial parameter update. Nil fields leave the
// corresponding parameter unchanged.
type ParamUpdate struct {
	ThresholdDB  *float64
	AttackSec    *float64
	ReleaseSec   *float64
	RMSWindowSec *float64
}

// applyTo merges the update into p and returns the result.
func (u ParamUpdate) applyTo(p Params) Params {
	if u.ThresholdDB != nil {
		p.ThresholdDB = *u.ThresholdDB
	}

	if u.AttackSec != nil {
		p.AttackSec = *u.AttackSec
	}

	if u.ReleaseSec != nil {
		p.ReleaseSec = *u.ReleaseSec
	}

	if u.RMSWindowSec != nil {
		p.RMSWindowSec = *u.RMSWindowSec
	}

	return p
}
