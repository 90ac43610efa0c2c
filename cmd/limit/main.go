// Command limit runs the lookahead limiter from the command line.
//
// Usage:
//
//	limit demo [flags]
//	limit process [flags]
//
// The demo command synthesizes a loud tone burst, feeds it through the
// limiter and prints before/after level statistics. The process command
// reads interleaved float64 little-endian samples from stdin, limits
// them and writes the result to stdout.
//
// Examples:
//
//	limit demo
//	limit demo --threshold -12 --release 0.2
//	limit process --channels 2 <in.f64 >out.f64
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/cwbudde/algo-limiter/dsp/buffer"
	"github.com/cwbudde/algo-limiter/dsp/core"
	"github.com/cwbudde/algo-limiter/dsp/signal"
	"github.com/cwbudde/algo-limiter/dsp/stream"
	timestats "github.com/cwbudde/algo-limiter/stats/time"
)

var version = "0.1.0"

// Globals holds the limiter settings shared by all commands.
type Globals struct {
	Rate      float64 `default:"48000" help:"Sample rate in Hz"`
	Block     int     `default:"128" help:"Processing block size in frames"`
	Threshold float64 `default:"-1" help:"Limiter threshold in dBFS"`
	Attack    float64 `default:"0.015" help:"Attack time constant in seconds"`
	Release   float64 `default:"0.080" help:"Release time constant in seconds"`
	Window    float64 `default:"0.005" help:"RMS detector window in seconds"`
	Lookahead float64 `default:"0.010" help:"Lookahead (latency) in seconds"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Demo    DemoCmd          `cmd:"" help:"Synthesize a tone burst and print limiting statistics"`
	Process ProcessCmd       `cmd:"" help:"Limit raw float64 samples from stdin to stdout"`
	Version kong.VersionFlag `short:"v" help:"Show version information"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("limit"),
		kong.Description("Sample-accurate lookahead audio limiter"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	ctx.FatalIfErrorf(ctx.Run(&cliArgs.Globals))
}

// newProcessor builds a processor from the shared flags and pushes the
// flag values through the same parameter path a live controller would use.
func newProcessor(g *Globals, channels int) (*stream.Processor, error) {
	proc, err := stream.New(g.Lookahead,
		core.WithSampleRate(g.Rate),
		core.WithBlockSize(g.Block),
		core.WithChannels(channels),
	)
	if err != nil {
		return nil, err
	}

	err = proc.Update(stream.ParamUpdate{
		ThresholdDB:  &g.Threshold,
		AttackSec:    &g.Attack,
		ReleaseSec:   &g.Release,
		RMSWindowSec: &g.Window,
	})
	if err != nil {
		return nil, err
	}

	return proc, nil
}

// DemoCmd synthesizes a burst, limits it and reports the level change.
type DemoCmd struct {
	Freq      float64 `default:"1000" help:"Burst frequency in Hz"`
	Amplitude float64 `default:"1.0" help:"Burst amplitude (linear)"`
	Lead      float64 `default:"0.05" help:"Leading silence in seconds"`
	Duration  float64 `default:"0.5" help:"Burst duration in seconds"`
	Tail      float64 `default:"0.3" help:"Trailing silence in seconds"`
}

func (c *DemoCmd) Run(g *Globals) error {
	proc, err := newProcessor(g, 1)
	if err != nil {
		return err
	}

	gen := signal.NewGenerator(core.WithSampleRate(g.Rate))

	input, err := gen.SineBurst(c.Freq, c.Amplitude, c.Lead, c.Duration, c.Tail)
	if err != nil {
		return err
	}

	output, maxReduction, err := limitAligned(proc, g.Block, input)
	if err != nil {
		return err
	}

	cmp := timestats.Compare(input, output)
	printReport(cmp, proc.Latency(), maxReduction)

	return nil
}

// limitAligned limits a mono signal block by block, drains the lookahead
// delay with silence and returns the output aligned to the input. It also
// tracks the largest gain reduction observed across all blocks.
func limitAligned(proc *stream.Processor, blockSize int, input []float64) ([]float64, float64, error) {
	latency := proc.Latency()
	padded := make([]float64, len(input)+latency)
	copy(padded, input)

	out := make([]float64, len(padded))

	var maxReduction float64

	for pos := 0; pos < len(padded); pos += blockSize {
		end := min(pos+blockSize, len(padded))

		err := proc.Process(
			[][]float64{padded[pos:end]},
			[][]float64{out[pos:end]},
		)
		if err != nil {
			return nil, 0, err
		}

		if r := proc.Levels().GainReductionDB; r > maxReduction {
			maxReduction = r
		}
	}

	return out[latency:], maxReduction, nil
}

func printReport(cmp timestats.Comparison, latency int, maxReduction float64) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Stage\tRMS [dB]\tPeak [dB]\tCrest [dB]\n")
	fmt.Fprintf(tw, "-----\t--------\t---------\t----------\n")
	fmt.Fprintf(tw, "input\t%.2f\t%.2f\t%.2f\n",
		cmp.Input.RMS_dB, cmp.Input.Peak_dB, cmp.Input.CrestFactor_dB)
	fmt.Fprintf(tw, "output\t%.2f\t%.2f\t%.2f\n",
		cmp.Output.RMS_dB, cmp.Output.Peak_dB, cmp.Output.CrestFactor_dB)

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
		return
	}

	fmt.Printf("\nRMS change:         %+.2f dB\n", cmp.RMSChange_dB)
	fmt.Printf("Peak change:        %+.2f dB\n", cmp.PeakChange_dB)
	fmt.Printf("Max gain reduction: %.2f dB\n", maxReduction)
	fmt.Printf("Latency:            %d samples\n", latency)
}

// ProcessCmd limits a raw sample stream. Samples are interleaved float64
// little-endian. The output keeps the lookahead latency; downstream
// tooling can trim it using the sample count printed to stderr.
type ProcessCmd struct {
	Channels int `default:"2" help:"Number of interleaved channels"`
}

func (c *ProcessCmd) Run(g *Globals) error {
	if c.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", c.Channels)
	}

	proc, err := newProcessor(g, c.Channels)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)

	dropped, err := limitStream(proc, writer, reader, c.Channels, g.Block)
	if err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "warning: input truncated, discarded %d trailing bytes (not a whole frame)\n", dropped)
	}

	fmt.Fprintf(os.Stderr, "latency: %d samples per channel\n", proc.Latency())

	return nil
}

// limitStream pumps interleaved float64 LE frames from r through proc to
// w, blockFrames at a time. It returns the number of trailing bytes that
// did not form a whole frame, so callers can surface input truncation.
func limitStream(proc *stream.Processor, w io.Writer, r io.Reader, channels, blockFrames int) (dropped int, err error) {
	frameBytes := channels * 8
	raw := make([]byte, blockFrames*frameBytes)
	interleaved := make([]float64, blockFrames*channels)
	in := buffer.NewBlock(channels, blockFrames)
	out := buffer.NewBlock(channels, blockFrames)

	for {
		n, readErr := io.ReadFull(r, raw)
		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("read input: %w", readErr)
		}

		frames := n / frameBytes
		if frames > 0 {
			decodeSamples(interleaved[:frames*channels], raw[:frames*frameBytes])
			in.Resize(channels, frames)
			out.Resize(channels, frames)
			in.Deinterleave(interleaved[:frames*channels])

			if err := proc.Process(in.Samples(), out.Samples()); err != nil {
				return 0, err
			}

			out.Interleave(interleaved[:frames*channels])
			encodeSamples(raw[:frames*frameBytes], interleaved[:frames*channels])

			if _, err := w.Write(raw[:frames*frameBytes]); err != nil {
				return 0, fmt.Errorf("write output: %w", err)
			}
		}

		if readErr != nil {
			return n - frames*frameBytes, nil
		}
	}
}

func decodeSamples(dst []float64, src []byte) {
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
	}
}

func encodeSamples(dst []byte, src []float64) {
	for i, v := range src {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v))
	}
}
