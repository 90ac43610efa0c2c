package buffer

// Block is a planar multichannel sample block: one float64 slice per
// channel, all of equal length. It bridges host audio buffers to the
// [][]float64 processing API without per-call conversion.
type Block struct {
	channels [][]float64
}

// NewBlock returns a zero-filled Block with the given shape.
func NewBlock(channels, frames int) *Block {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}

	b := &Block{channels: make([][]float64, channels)}
	for c := range b.channels {
		b.channels[c] = make([]float64, frames)
	}
	return b
}

// FromSlices wraps existing per-channel slices without copying.
// Mutations to the slices are visible through the Block and vice versa.
func FromSlices(chans [][]float64) *Block {
	return &Block{channels: chans}
}

// Channels returns the number of channels.
func (b *Block) Channels() int {
	return len(b.channels)
}

// Frames returns the per-channel sample count (0 for an empty block).
func (b *Block) Frames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Channel returns the samples of channel c.
func (b *Block) Channel(c int) []float64 {
	return b.channels[c]
}

// Samples returns the underlying per-channel slices.
func (b *Block) Samples() [][]float64 {
	return b.channels
}

// Resize sets the shape to channels x frames, reusing backing slices when
// possible. Newly exposed samples are zeroed.
func (b *Block) Resize(channels, frames int) {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}

	if channels <= cap(b.channels) {
		b.channels = b.channels[:channels]
	} else {
		grown := make([][]float64, channels)
		copy(grown, b.channels)
		b.channels = grown
	}

	for c := range b.channels {
		ch := b.channels[c]
		oldLen := len(ch)

		if frames <= cap(ch) {
			ch = ch[:frames]
			for i := oldLen; i < frames; i++ {
				ch[i] = 0
			}
		} else {
			grown := make([]float64, frames)
			copy(grown, ch)
			ch = grown
		}

		b.channels[c] = ch
	}
}

// Zero sets all samples in all channels to 0.
func (b *Block) Zero() {
	for _, ch := range b.channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// CopyFrom copies as many samples as fit from src, channel by channel,
// and returns the number of frames copied per channel pair.
func (b *Block) CopyFrom(src *Block) int {
	frames := b.Frames()
	if s := src.Frames(); s < frames {
		frames = s
	}

	chans := len(b.channels)
	if len(src.channels) < chans {
		chans = len(src.channels)
	}

	for c := 0; c < chans; c++ {
		copy(b.channels[c][:frames], src.channels[c][:frames])
	}

	return frames
}

// Interleave writes the block into dst in frame-major (interleaved)
// order and returns the number of values written. dst must have room for
// Channels()*Frames() values.
func (b *Block) Interleave(dst []float64) int {
	chans := len(b.channels)
	frames := b.Frames()

	n := 0
	for f := 0; f < frames; f++ {
		for c := 0; c < chans; c++ {
			if n >= len(dst) {
				return n
			}
			dst[n] = b.channels[c][f]
			n++
		}
	}
	return n
}

// Deinterleave fills the block from frame-major (interleaved) src and
// returns the number of values consumed.
func (b *Block) Deinterleave(src []float64) int {
	chans := len(b.channels)
	frames := b.Frames()

	n := 0
	for f := 0; f < frames; f++ {
		for c := 0; c < chans; c++ {
			if n >= len(src) {
				return n
			}
			b.channels[c][f] = src[n]
			n++
		}
	}
	return n
}
