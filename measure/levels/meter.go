// Package levels provides per-block level metering for diagnostic output:
// input and output loudness plus the current gain reduction. Measurements
// are read-only observers and never affect processing.
package levels

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-limiter/dsp/core"
)

// Snapshot holds the levels measured over one block.
type Snapshot struct {
	InputRMSDB      float64
	OutputRMSDB     float64
	InputPeakDB     float64
	OutputPeakDB    float64
	GainReductionDB float64
}

// Meter measures block levels without allocating per call. The scratch
// buffer is sized at construction; longer blocks are measured in chunks.
type Meter struct {
	scratch []float64
}

// NewMeter returns a meter with scratch capacity for the given block size.
func NewMeter(blockSize int) *Meter {
	if blockSize <= 0 {
		blockSize = 1
	}

	return &Meter{scratch: make([]float64, blockSize)}
}

// Measure returns the levels of one input/output block pair across all
// channels. reductionDB is passed through from the gain stage.
func (m *Meter) Measure(in, out [][]float64, reductionDB float64) Snapshot {
	inRMS, inPeak := m.channelsLevel(in)
	outRMS, outPeak := m.channelsLevel(out)

	return Snapshot{
		InputRMSDB:      core.AmplitudeDB(inRMS),
		OutputRMSDB:     core.AmplitudeDB(outRMS),
		InputPeakDB:     core.AmplitudeDB(inPeak),
		OutputPeakDB:    core.AmplitudeDB(outPeak),
		GainReductionDB: reductionDB,
	}
}

// channelsLevel returns the RMS and peak over all samples of all channels.
func (m *Meter) channelsLevel(chans [][]float64) (rms, peak float64) {
	sum := 0.0
	count := 0

	for _, ch := range chans {
		for len(ch) > 0 {
			n := len(ch)
			if n > len(m.scratch) {
				n = len(m.scratch)
			}

			chunk := ch[:n]
			vecmath.MulBlock(m.scratch[:n], chunk, chunk)

			for _, sq := range m.scratch[:n] {
				sum += sq
			}

			for _, v := range chunk {
				if a := math.Abs(v); a > peak {
					peak = a
				}
			}

			count += n
			ch = ch[n:]
		}
	}

	if count == 0 {
		return 0, 0
	}

	return math.Sqrt(sum / float64(count)), peak
}
