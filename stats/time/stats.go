// Package time provides time-domain level statistics for limiter
// verification and reporting: RMS, peak, and crest factor with their dB
// forms, plus input/output comparisons.
package time

import "math"

// Stats holds time-domain level statistics of a signal.
//
//nolint:revive
type Stats struct {
	Length         int
	RMS            float64
	RMS_dB         float64
	Peak           float64 // max |sample|
	Peak_dB        float64
	CrestFactor    float64 // peak / RMS (linear)
	CrestFactor_dB float64
	Energy         float64 // sum of squares
}

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// ratioTodB converts a linear ratio to decibels: 20 * log10(value).
// Returns -Inf for zero values.
func ratioTodB(value float64) float64 {
	if value == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(value)
}

// emptyStats returns a zero-valued Stats with -Inf for all dB fields.
func emptyStats() Stats {
	return Stats{
		RMS_dB:         math.Inf(-1),
		Peak_dB:        math.Inf(-1),
		CrestFactor_dB: math.Inf(-1),
	}
}

// Calculate computes all level statistics in a single pass.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return emptyStats()
	}

	var sumSq, peak float64
	for _, x := range signal {
		sumSq += x * x

		if a := math.Abs(x); a > peak {
			peak = a
		}
	}

	rms := math.Sqrt(sumSq / float64(n))

	var crest, crestdB float64
	if rms == 0 {
		crestdB = math.Inf(-1)
	} else {
		crest = peak / rms
		crestdB = ratioTodB(crest)
	}

	return Stats{
		Length:         n,
		RMS:            rms,
		RMS_dB:         ampTodB(rms),
		Peak:           peak,
		Peak_dB:        ampTodB(peak),
		CrestFactor:    crest,
		CrestFactor_dB: crestdB,
		Energy:         sumSq,
	}
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// Comparison relates a processed signal to its source.
type Comparison struct {
	Input  Stats
	Output Stats

	// RMSChange_dB and PeakChange_dB are output minus input levels;
	// limiting yields non-positive values.
	//
	//nolint:revive
	RMSChange_dB  float64
	PeakChange_dB float64
}

// Compare computes statistics of in and out and their level change.
// Silent signals yield -Inf dB levels and a zero change.
func Compare(in, out []float64) Comparison {
	c := Comparison{
		Input:  Calculate(in),
		Output: Calculate(out),
	}

	if c.Input.RMS > 0 && c.Output.RMS > 0 {
		c.RMSChange_dB = c.Output.RMS_dB - c.Input.RMS_dB
	}

	if c.Input.Peak > 0 && c.Output.Peak > 0 {
		c.PeakChange_dB = c.Output.Peak_dB - c.Input.Peak_dB
	}

	return c
}
