package dynamics

import "fmt"

// Parameter validators, shared by the setters below and by control
// surfaces that must reject bad updates before they reach a real-time
// thread (where a setter error has nowhere to go).

// ValidateThreshold checks a limiting ceiling in dB.
func ValidateThreshold(dB float64) error {
	if dB < minThresholdDB || dB > maxThresholdDB || !isFinite(dB) {
		return fmt.Errorf("threshold must be in [%f, %f] dB: %f", minThresholdDB, maxThresholdDB, dB)
	}

	return nil
}

// ValidateAttack checks an attack time constant in seconds.
func ValidateAttack(sec float64) error {
	if sec < minAttackSec || sec > maxAttackSec || !isFinite(sec) {
		return fmt.Errorf("attack must be in [%f, %f] s: %f", minAttackSec, maxAttackSec, sec)
	}

	return nil
}

// ValidateRelease checks a release time constant in seconds.
func ValidateRelease(sec float64) error {
	if sec < minReleaseSec || sec > maxReleaseSec || !isFinite(sec) {
		return fmt.Errorf("release must be in [%f, %f] s: %f", minReleaseSec, maxReleaseSec, sec)
	}

	return nil
}

// ValidateRMSWindow checks an RMS window length in seconds.
func ValidateRMSWindow(sec float64) error {
	if sec < minRMSWindow || sec > maxRMSWindow || !isFinite(sec) {
		return fmt.Errorf("rms window must be in [%f, %f] s: %f", minRMSWindow, maxRMSWindow, sec)
	}

	return nil
}

// ValidateLookahead checks a lookahead delay in seconds.
func ValidateLookahead(sec float64) error {
	if sec < minLookahead || sec > maxLookahead || !isFinite(sec) {
		return fmt.Errorf("lookahead must be in [%f, %f] s: %f", minLookahead, maxLookahead, sec)
	}

	return nil
}
