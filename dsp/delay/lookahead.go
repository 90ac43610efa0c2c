// Package delay provides the fixed-latency lookahead ring buffer used by
// the limiter's gain stage.
package delay

import "fmt"

// Lookahead is a circular delay line with a fixed latency contract: once
// the ring has filled, every delayed read returns the sample written
// exactly Len() writes earlier.
//
// The ring holds Len()+1 slots so that a sample step can write first and
// read second without overwriting the sample it is about to read.
type Lookahead struct {
	buffer   []float64
	writePos int
	fill     int
}

// NewLookahead returns a lookahead ring with the given delay in samples.
func NewLookahead(length int) (*Lookahead, error) {
	if length <= 0 {
		return nil, fmt.Errorf("lookahead length must be > 0: %d", length)
	}

	return &Lookahead{buffer: make([]float64, length+1)}, nil
}

// Len returns the delay length in samples.
func (l *Lookahead) Len() int {
	return len(l.buffer) - 1
}

// Filled reports whether at least Len() samples have been written since
// construction or the last Reset. Until then ReadDelayed does not yet
// return a true Len()-old sample.
func (l *Lookahead) Filled() bool {
	return l.fill >= l.Len()
}

// Write stores one sample at the write cursor and advances it cyclically.
func (l *Lookahead) Write(sample float64) {
	l.buffer[l.writePos] = sample

	l.writePos++
	if l.writePos >= len(l.buffer) {
		l.writePos = 0
	}

	if l.fill < len(l.buffer) {
		l.fill++
	}
}

// ReadDelayed returns the sample written exactly Len() positions behind
// the most recent Write.
func (l *Lookahead) ReadDelayed() float64 {
	return l.buffer[l.writePos]
}

// Process writes one sample and returns the delayed sample. During fill-up
// it returns the current sample instead: the ring does not yet hold a true
// Len()-old value, and passing audio through undelayed beats emitting
// silence at stream start.
func (l *Lookahead) Process(sample float64) float64 {
	filled := l.Filled()
	l.Write(sample)

	if !filled {
		return sample
	}

	return l.ReadDelayed()
}

// Reset clears ring state and restarts the fill-up period.
func (l *Lookahead) Reset() {
	for i := range l.buffer {
		l.buffer[i] = 0
	}

	l.writePos = 0
	l.fill = 0
}
