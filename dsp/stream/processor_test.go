package stream

import (
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-limiter/dsp/core"
	"github.com/cwbudde/algo-limiter/dsp/dynamics"
	"github.com/cwbudde/algo-limiter/internal/testutil"
)

func f64(v float64) *float64 { return &v }

func newTestProcessor(t *testing.T, opts ...core.ProcessorOption) *Processor {
	t.Helper()

	p, err := New(0.010, opts...)
	if err != nil {
		t.Fatal(err)
	}

	return p
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		lookahead float64
		wantErr   bool
	}{
		{"valid", 0.010, false},
		{"zero", 0, true},
		{"negative", -0.01, true},
		{"excessive", 0.5, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.lookahead)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%v) err=%v wantErr=%v", tt.lookahead, err, tt.wantErr)
			}

			if !tt.wantErr && p.Channels() != 2 {
				t.Fatalf("default channels = %d, want 2", p.Channels())
			}
		})
	}
}

func TestNewAppliesOptions(t *testing.T) {
	p := newTestProcessor(t,
		core.WithSampleRate(44100),
		core.WithBlockSize(256),
		core.WithChannels(4),
	)

	cfg := p.Config()
	if cfg.SampleRate != 44100 || cfg.BlockSize != 256 || cfg.Channels != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if p.Channels() != 4 {
		t.Fatalf("channels = %d, want 4", p.Channels())
	}

	// 10 ms at 44.1 kHz.
	if p.Latency() != 441 {
		t.Fatalf("latency = %d, want 441", p.Latency())
	}
}

func TestProcessMatchesSingleChannelLimiter(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	ref, err := dynamics.NewLookaheadLimiter(48000, 0.010)
	if err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(440, 48000, 0.9, 512)

	want := make([]float64, len(in))
	for i, v := range in {
		want[i] = ref.ProcessSample(v)
	}

	got := make([]float64, len(in))
	for off := 0; off < len(in); off += 128 {
		if err := p.Process(
			[][]float64{in[off : off+128]},
			[][]float64{got[off : off+128]},
		); err != nil {
			t.Fatal(err)
		}
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestProcessChannelsAreIndependent(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.Update(ParamUpdate{ThresholdDB: f64(-20)}); err != nil {
		t.Fatal(err)
	}

	// Channel 0 is far above threshold, channel 1 far below. With
	// independent envelopes the quiet channel must pass through at
	// exactly unity gain even while the loud channel is being reduced.
	loud := testutil.DC(1.0, 4800)
	quiet := testutil.DC(0.01, 4800)

	outLoud := make([]float64, len(loud))
	outQuiet := make([]float64, len(quiet))

	for off := 0; off < len(loud); off += 128 {
		end := min(off+128, len(loud))
		if err := p.Process(
			[][]float64{loud[off:end], quiet[off:end]},
			[][]float64{outLoud[off:end], outQuiet[off:end]},
		); err != nil {
			t.Fatal(err)
		}
	}

	delay := p.Latency()
	for i := delay; i < len(outQuiet); i++ {
		if outQuiet[i] != 0.01 {
			t.Fatalf("quiet channel sample %d = %v, want untouched 0.01", i, outQuiet[i])
		}
	}

	if last := outLoud[len(outLoud)-1]; last > 0.2 {
		t.Fatalf("loud channel not limited: last sample %v", last)
	}
}

func TestProcessFixedLatency(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	delay := p.Latency()
	if delay != 480 {
		t.Fatalf("latency = %d, want 480", delay)
	}

	// Quiet impulse below threshold: gain stays unity, so the impulse
	// must appear exactly `delay` samples later.
	total := 4 * delay
	in := testutil.Impulse(total, delay+37, 0.05)
	out := make([]float64, total)

	for off := 0; off < total; off += 128 {
		end := min(off+128, total)
		if err := p.Process([][]float64{in[off:end]}, [][]float64{out[off:end]}); err != nil {
			t.Fatal(err)
		}
	}

	for i, v := range out {
		want := 0.0
		if i == delay+37+delay {
			want = 0.05
		}

		if v != want {
			t.Fatalf("output %d = %v, want %v", i, v, want)
		}
	}
}

func TestProcessZeroLengthBlockIsNoOp(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	before := p.Levels()

	if err := p.Process(nil, nil); err != nil {
		t.Fatal(err)
	}

	if err := p.Process([][]float64{{}}, [][]float64{{}}); err != nil {
		t.Fatal(err)
	}

	if p.Levels() != before {
		t.Fatal("zero-length block changed level snapshot")
	}
}

func TestProcessChannelMismatch(t *testing.T) {
	p := newTestProcessor(t) // 2 channels configured

	in := [][]float64{testutil.DC(0.1, 128)}
	out := [][]float64{make([]float64, 128)}

	err := p.Process(in, out)
	if err == nil {
		t.Fatal("expected channel count mismatch error")
	}

	// The provided channel is still processed deterministically.
	if out[0][0] != 0.1 {
		t.Fatalf("mismatch block not processed: out[0][0] = %v", out[0][0])
	}
}

func TestUpdatePartial(t *testing.T) {
	p := newTestProcessor(t)

	if err := p.Update(ParamUpdate{ThresholdDB: f64(-12)}); err != nil {
		t.Fatal(err)
	}

	got := p.Params()
	if got.ThresholdDB != -12 {
		t.Fatalf("threshold = %v, want -12", got.ThresholdDB)
	}

	// Unspecified fields keep their previous values.
	def := DefaultParams()
	if got.AttackSec != def.AttackSec || got.ReleaseSec != def.ReleaseSec || got.RMSWindowSec != def.RMSWindowSec {
		t.Fatalf("partial update changed unspecified fields: %+v", got)
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	p := newTestProcessor(t)

	before := p.Params()

	if err := p.Update(ParamUpdate{AttackSec: f64(-1)}); err == nil {
		t.Fatal("expected rejection of negative attack")
	}

	if err := p.Update(ParamUpdate{ThresholdDB: f64(40)}); err == nil {
		t.Fatal("expected rejection of positive threshold")
	}

	if p.Params() != before {
		t.Fatalf("rejected update mutated params: %+v", p.Params())
	}
}

func TestUpdateBatchRejectedWholesale(t *testing.T) {
	p := newTestProcessor(t)

	before := p.Params()

	// One valid and one invalid field in the same batch: nothing applies.
	err := p.Update(ParamUpdate{
		ThresholdDB: f64(-6),
		ReleaseSec:  f64(-5),
	})
	if err == nil {
		t.Fatal("expected batch rejection")
	}

	if p.Params() != before {
		t.Fatalf("partially applied rejected batch: %+v", p.Params())
	}
}

func TestUpdateTakesEffectAtBlockBoundary(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	loud := testutil.DC(1.0, 128)
	out := make([]float64, 128)

	// With the default -1 dB threshold a 0 dB input is barely reduced.
	for i := 0; i < 40; i++ {
		if err := p.Process([][]float64{loud}, [][]float64{out}); err != nil {
			t.Fatal(err)
		}
	}

	mildReduction := p.Levels().GainReductionDB

	if err := p.Update(ParamUpdate{ThresholdDB: f64(-30)}); err != nil {
		t.Fatal(err)
	}

	// The new threshold applies from the next Process call.
	for i := 0; i < 400; i++ {
		if err := p.Process([][]float64{loud}, [][]float64{out}); err != nil {
			t.Fatal(err)
		}
	}

	deepReduction := p.Levels().GainReductionDB
	if deepReduction < mildReduction+20 {
		t.Fatalf("threshold update ineffective: reduction %v -> %v dB", mildReduction, deepReduction)
	}

	if math.Abs(deepReduction-30) > 1 {
		t.Fatalf("reduction = %v dB, want ~30", deepReduction)
	}
}

func TestUpdateRMSWindowAppliedSafely(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	if err := p.Update(ParamUpdate{RMSWindowSec: f64(0.050)}); err != nil {
		t.Fatal(err)
	}

	in := testutil.DC(0.5, 128)
	out := make([]float64, 128)

	// The reallocation happens inside the next Process; it must not
	// disturb output determinism.
	if err := p.Process([][]float64{in}, [][]float64{out}); err != nil {
		t.Fatal(err)
	}

	if p.Params().RMSWindowSec != 0.050 {
		t.Fatalf("rms window = %v, want 0.050", p.Params().RMSWindowSec)
	}

	testutil.RequireFinite(t, out)
}

func TestLevelsSnapshot(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	initial := p.Levels()
	if initial.InputRMSDB != core.SilenceFloorDB {
		t.Fatalf("initial input level = %v, want silence floor", initial.InputRMSDB)
	}

	in := testutil.DC(0.1, 128)
	out := make([]float64, 128)

	if err := p.Process([][]float64{in}, [][]float64{out}); err != nil {
		t.Fatal(err)
	}

	snap := p.Levels()
	if math.Abs(snap.InputRMSDB+20) > 1e-9 {
		t.Fatalf("input RMS = %v dB, want -20", snap.InputRMSDB)
	}

	if snap.GainReductionDB < 0 {
		t.Fatalf("negative gain reduction: %v", snap.GainReductionDB)
	}
}

func TestLevelsConcurrentWithProcess(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))

	if err := p.Update(ParamUpdate{ThresholdDB: f64(-20)}); err != nil {
		t.Fatal(err)
	}

	// DC at 0 dB: every published input level is either the initial
	// silence floor or exactly 0 dB, and the limiter never amplifies, so
	// any torn or stale snapshot shows up as an inconsistent field pair.
	in := [][]float64{testutil.DC(1.0, 128)}
	out := [][]float64{make([]float64, 128)}

	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case <-done:
				return
			default:
			}

			snap := p.Levels()

			if snap.InputRMSDB != core.SilenceFloorDB && snap.InputRMSDB != 0 {
				t.Errorf("input RMS = %v dB, want silence floor or 0", snap.InputRMSDB)
				return
			}

			if snap.OutputRMSDB > snap.InputRMSDB+1e-9 {
				t.Errorf("inconsistent snapshot: output %v dB above input %v dB",
					snap.OutputRMSDB, snap.InputRMSDB)
				return
			}

			if snap.GainReductionDB < 0 || math.IsNaN(snap.GainReductionDB) {
				t.Errorf("bad gain reduction: %v", snap.GainReductionDB)
				return
			}
		}
	}()

	for i := 0; i < 20000; i++ {
		if err := p.Process(in, out); err != nil {
			t.Error(err)
			break
		}
	}

	close(done)
	wg.Wait()
}

func TestReset(t *testing.T) {
	p := newTestProcessor(t, core.WithChannels(1))
	_ = p.Update(ParamUpdate{ThresholdDB: f64(-30)})

	loud := testutil.DC(1.0, 128)
	out := make([]float64, 128)

	for i := 0; i < 100; i++ {
		_ = p.Process([][]float64{loud}, [][]float64{out})
	}

	if p.Levels().GainReductionDB == 0 {
		t.Fatal("expected gain reduction before reset")
	}

	p.Reset()

	if p.Levels().InputRMSDB != core.SilenceFloorDB {
		t.Fatal("levels not cleared by reset")
	}

	// After reset the fill-up pass-through starts over.
	quiet := testutil.DC(0.01, 128)
	if err := p.Process([][]float64{quiet}, [][]float64{out}); err != nil {
		t.Fatal(err)
	}

	if out[0] != 0.01 {
		t.Fatalf("expected fill-up pass-through after reset, got %v", out[0])
	}
}
