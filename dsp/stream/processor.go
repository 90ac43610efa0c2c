package stream

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-limiter/dsp/core"
	"github.com/cwbudde/algo-limiter/dsp/dynamics"
	"github.com/cwbudde/algo-limiter/measure/levels"
)

// Processor drives N independent limiter channels block-synchronously.
// Process is meant to be called from a real-time audio callback: it never
// blocks, locks, or allocates. Parameter updates arrive from a separate
// control context through Update and are handed off as an atomic snapshot
// drained at the next block boundary, which is also the only point where
// an RMS window change may reallocate detector state.
type Processor struct {
	cfg          core.ProcessorConfig
	lookaheadSec float64

	channels []*dynamics.LookaheadLimiter
	gains    []float64
	meter    *levels.Meter

	// ctrlParams is owned by the control context; Update merges partial
	// updates into it before publishing.
	ctrlParams Params

	// pending is the single-producer/single-consumer handoff: Update
	// stores the latest full snapshot, Process swaps it out at the next
	// block boundary. Intermediate snapshots may be skipped; only the
	// latest matters.
	pending atomic.Pointer[Params]

	published levelStore
}

// levelStore publishes level snapshots from the real-time side without
// allocating. Every field is an atomic, and a sequence counter makes the
// whole snapshot consistent: the writer bumps it to odd before storing and
// to even after, and readers retry while it is odd or has moved.
type levelStore struct {
	seq        atomic.Uint64
	inputRMS   atomic.Uint64
	outputRMS  atomic.Uint64
	inputPeak  atomic.Uint64
	outputPeak atomic.Uint64
	reduction  atomic.Uint64
}

// store publishes one snapshot. Single writer: the real-time side.
func (s *levelStore) store(snap levels.Snapshot) {
	s.seq.Add(1)
	s.inputRMS.Store(math.Float64bits(snap.InputRMSDB))
	s.outputRMS.Store(math.Float64bits(snap.OutputRMSDB))
	s.inputPeak.Store(math.Float64bits(snap.InputPeakDB))
	s.outputPeak.Store(math.Float64bits(snap.OutputPeakDB))
	s.reduction.Store(math.Float64bits(snap.GainReductionDB))
	s.seq.Add(1)
}

// load returns a consistent snapshot. Readers only retry while a store is
// in flight, so the wait is bounded by one writer pass.
func (s *levelStore) load() levels.Snapshot {
	for {
		v := s.seq.Load()
		if v&1 != 0 {
			continue
		}

		snap := levels.Snapshot{
			InputRMSDB:      math.Float64frombits(s.inputRMS.Load()),
			OutputRMSDB:     math.Float64frombits(s.outputRMS.Load()),
			InputPeakDB:     math.Float64frombits(s.inputPeak.Load()),
			OutputPeakDB:    math.Float64frombits(s.outputPeak.Load()),
			GainReductionDB: math.Float64frombits(s.reduction.Load()),
		}

		if s.seq.Load() == v {
			return snap
		}
	}
}

// New creates a processor with the given fixed lookahead. Sample rate,
// block size, and channel count come from the processor options.
func New(lookaheadSec float64, opts ...core.ProcessorOption) (*Processor, error) {
	if err := dynamics.ValidateLookahead(lookaheadSec); err != nil {
		return nil, err
	}

	cfg := core.ApplyProcessorOptions(opts...)

	p := &Processor{
		cfg:          cfg,
		lookaheadSec: lookaheadSec,
		channels:     make([]*dynamics.LookaheadLimiter, cfg.Channels),
		gains:        make([]float64, cfg.BlockSize),
		meter:        levels.NewMeter(cfg.BlockSize),
		ctrlParams:   DefaultParams(),
	}

	for i := range p.channels {
		l, err := dynamics.NewLookaheadLimiter(cfg.SampleRate, lookaheadSec)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}

		p.channels[i] = l
	}

	p.publishSilence()

	return p, nil
}

// Config returns the processor configuration.
func (p *Processor) Config() core.ProcessorConfig { return p.cfg }

// Channels returns the configured channel count.
func (p *Processor) Channels() int { return len(p.channels) }

// Lookahead returns the fixed lookahead in seconds.
func (p *Processor) Lookahead() float64 { return p.lookaheadSec }

// Latency returns the fixed end-to-end latency in samples.
func (p *Processor) Latency() int { return p.channels[0].LookaheadSamples() }

// Params returns the control-side view of the current parameters. Call
// only from the control context.
func (p *Processor) Params() Params { return p.ctrlParams }

// Update merges a partial parameter update, validates the result, and
// publishes it for the real-time side to pick up at the next block
// boundary. Invalid updates are rejected wholesale; previous values stay
// in effect. Call only from a single control context.
func (p *Processor) Update(u ParamUpdate) error {
	merged := u.applyTo(p.ctrlParams)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("parameter update rejected: %w", err)
	}

	p.ctrlParams = merged
	p.pending.Store(&merged)

	return nil
}

// Process runs one block through all channels: in and out must carry one
// slice per channel of equal length. The output has a fixed latency of
// Latency() samples. A zero-length block is a no-op.
//
// On a channel-count mismatch the first min(configured, provided)
// channels are processed deterministically and a descriptive error is
// returned alongside the processed output.
func (p *Processor) Process(in, out [][]float64) error {
	p.drainPending()

	if len(in) == 0 || len(out) == 0 {
		return nil
	}

	chans := len(p.channels)
	mismatch := len(in) != len(p.channels) || len(out) != len(p.channels)
	chans = min(chans, len(in), len(out))

	frames := 0
	for c := 0; c < chans; c++ {
		inCh, outCh := in[c], out[c]

		n := min(len(inCh), len(outCh))
		frames += n

		for off := 0; off < n; off += len(p.gains) {
			end := min(off+len(p.gains), n)
			p.channels[c].ProcessBlock(outCh[off:end], inCh[off:end], p.gains)
		}
	}

	if frames == 0 {
		return nil
	}

	p.publishLevels(in[:chans], out[:chans])

	if mismatch {
		return fmt.Errorf("channel count mismatch: configured %d, got in=%d out=%d (processed %d)",
			len(p.channels), len(in), len(out), chans)
	}

	return nil
}

// Levels returns the most recent per-block level snapshot. Safe to call
// from any goroutine; never affects processing.
func (p *Processor) Levels() levels.Snapshot {
	return p.published.load()
}

// Reset clears all channel state. Not safe to call concurrently with
// Process; hosts reset between streams, not mid-stream.
func (p *Processor) Reset() {
	for _, ch := range p.channels {
		ch.Reset()
	}

	p.publishSilence()
}

// drainPending applies the latest parameter snapshot, if any. Runs on the
// real-time side at the block boundary, the one safe point for the RMS
// window reallocation. Values were validated in Update, so setter errors
// cannot occur here.
func (p *Processor) drainPending() {
	ps := p.pending.Swap(nil)
	if ps == nil {
		return
	}

	for _, ch := range p.channels {
		_ = ch.SetThreshold(ps.ThresholdDB)
		_ = ch.SetAttack(ps.AttackSec)
		_ = ch.SetRelease(ps.ReleaseSec)
		_ = ch.SetRMSWindow(ps.RMSWindowSec)
	}
}

func (p *Processor) publishLevels(in, out [][]float64) {
	reduction := 0.0
	for _, ch := range p.channels {
		if r := ch.GainReductionDB(); r > reduction {
			reduction = r
		}
	}

	p.published.store(p.meter.Measure(in, out, reduction))
}

func (p *Processor) publishSilence() {
	p.published.store(levels.Snapshot{
		InputRMSDB:   core.SilenceFloorDB,
		OutputRMSDB:  core.SilenceFloorDB,
		InputPeakDB:  core.SilenceFloorDB,
		OutputPeakDB: core.SilenceFloorDB,
	})
}
