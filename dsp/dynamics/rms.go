package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-limiter/dsp/core"
)

// rmsSilenceFloor is the linear RMS below which the detector reports
// core.SilenceFloorDB instead of taking a logarithm.
const rmsSilenceFloor = 1e-5

// RMSDetector maintains a running loudness estimate over a sliding window
// of squared samples. Each Update is constant time: the square about to be
// evicted leaves the running sum, the incoming square enters it.
type RMSDetector struct {
	squares []float64
	index   int
	filled  int
	sum     float64
}

// NewRMSDetector returns a detector with the given window length in samples.
func NewRMSDetector(windowSamples int) (*RMSDetector, error) {
	if windowSamples <= 0 {
		return nil, fmt.Errorf("rms window must be > 0 samples: %d", windowSamples)
	}

	return &RMSDetector{squares: make([]float64, windowSamples)}, nil
}

// WindowLen returns the window length in samples.
func (d *RMSDetector) WindowLen() int {
	return len(d.squares)
}

// Sum returns the current running sum of squares.
func (d *RMSDetector) Sum() float64 {
	return d.sum
}

// Update feeds one sample and returns the current loudness in dB.
// Zero or negligible RMS reports core.SilenceFloorDB.
func (d *RMSDetector) Update(sample float64) float64 {
	square := core.FlushDenormals(sample * sample)

	if d.filled == len(d.squares) {
		d.sum -= d.squares[d.index]
	} else {
		d.filled++
	}

	d.squares[d.index] = square
	d.sum += square

	d.index++
	if d.index >= len(d.squares) {
		d.index = 0
	}

	// Eviction subtracts can leave a tiny negative residue.
	mean := d.sum / float64(len(d.squares))
	if mean <= 0 {
		return core.SilenceFloorDB
	}

	rms := mathSqrt(mean)
	if rms <= rmsSilenceFloor {
		return core.SilenceFloorDB
	}

	return 20 * mathLog10(rms)
}

// RMS returns the current linear RMS value without feeding a sample.
func (d *RMSDetector) RMS() float64 {
	mean := d.sum / float64(len(d.squares))
	if mean <= 0 {
		return 0
	}

	return mathSqrt(mean)
}

// Reset clears window history and the running sum.
func (d *RMSDetector) Reset() {
	for i := range d.squares {
		d.squares[i] = 0
	}

	d.index = 0
	d.filled = 0
	d.sum = 0
}
