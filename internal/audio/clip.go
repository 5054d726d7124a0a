package audio

import (
	"fmt"
	"time"
)

// OutputBitsPerSample is the only bit depth the engine emits.
const OutputBitsPerSample = 16

// Format describes the layout of PCM sample data.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// BytesPerSample returns the width of a single channel sample.
func (f Format) BytesPerSample() int {
	return f.BitsPerSample / 8
}

// BlockAlign returns the size in bytes of one frame (all channels).
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}
	return nil
}

// Clip is one decoded chunk of interleaved little-endian PCM audio.
type Clip struct {
	Format
	Samples []byte
}

// Frames returns the number of complete frames held by the clip.
func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	align := c.BlockAlign()
	if align <= 0 {
		return 0
	}
	return len(c.Samples) / align
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}
