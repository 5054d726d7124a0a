package audio

import (
	"encoding/binary"
	"math"
)

// ConvertBitDepth returns clip re-encoded as signed 16-bit samples. 8-bit
// sources are re-centred around zero, wider sources keep their top 16 bits.
func ConvertBitDepth(clip *Clip) (*Clip, error) {
	if err := clip.Format.validate(); err != nil {
		return nil, formatError("convert bit depth", "%v", err)
	}
	if clip.BitsPerSample == OutputBitsPerSample {
		return clip.clone(), nil
	}

	width := clip.BytesPerSample()
	count := len(clip.Samples) / width
	out := make([]byte, count*2)
	for i := 0; i < count; i++ {
		src := clip.Samples[i*width : (i+1)*width]
		var value int32
		switch clip.BitsPerSample {
		case 8:
			value = (int32(src[0]) - 128) << 8
		case 24:
			raw := int32(uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16)
			if raw&0x800000 != 0 {
				raw -= 1 << 24
			}
			value = raw >> 8
		case 32:
			value = int32(binary.LittleEndian.Uint32(src)) >> 16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clamp16(int64(value))))
	}

	format := clip.Format
	format.BitsPerSample = OutputBitsPerSample
	return &Clip{Format: format, Samples: out}, nil
}

// ConvertChannels remaps a 16-bit clip to the requested channel count.
// Multi-channel to mono averages all channels, mono to multi-channel
// duplicates the single channel. Other remappings are rejected.
func ConvertChannels(clip *Clip, channels int) (*Clip, error) {
	if err := clip.requireSixteenBit("convert channels"); err != nil {
		return nil, err
	}
	if channels <= 0 {
		return nil, formatError("convert channels", "invalid target channel count %d", channels)
	}
	if clip.Channels == channels {
		return clip.clone(), nil
	}
	if channels != 1 && clip.Channels != 1 {
		return nil, formatError("convert channels", "unsupported channel conversion %d -> %d", clip.Channels, channels)
	}

	frames := clip.Frames()
	out := make([]byte, frames*channels*2)
	srcAlign := clip.BlockAlign()
	for f := 0; f < frames; f++ {
		frame := clip.Samples[f*srcAlign : (f+1)*srcAlign]
		if channels == 1 {
			var sum int64
			for c := 0; c < clip.Channels; c++ {
				sum += int64(int16(binary.LittleEndian.Uint16(frame[c*2:])))
			}
			avg := math.Round(float64(sum) / float64(clip.Channels))
			binary.LittleEndian.PutUint16(out[f*2:], uint16(clamp16(int64(avg))))
			continue
		}
		for c := 0; c < channels; c++ {
			copy(out[(f*channels+c)*2:], frame[0:2])
		}
	}

	format := clip.Format
	format.Channels = channels
	return &Clip{Format: format, Samples: out}, nil
}

// Resample changes the sample rate with nearest-neighbour frame selection.
// The output holds round(frames*target/source) frames.
func Resample(clip *Clip, sampleRate int) (*Clip, error) {
	if err := clip.Format.validate(); err != nil {
		return nil, formatError("resample", "%v", err)
	}
	if sampleRate <= 0 {
		return nil, formatError("resample", "invalid target sample rate %d", sampleRate)
	}
	if clip.SampleRate == sampleRate {
		return clip.clone(), nil
	}

	srcFrames := clip.Frames()
	ratio := float64(sampleRate) / float64(clip.SampleRate)
	outFrames := int(math.Round(float64(srcFrames) * ratio))
	align := clip.BlockAlign()
	out := make([]byte, outFrames*align)
	for i := 0; i < outFrames; i++ {
		src := int(math.Round(float64(i) / ratio))
		if src >= srcFrames {
			src = srcFrames - 1
		}
		copy(out[i*align:(i+1)*align], clip.Samples[src*align:(src+1)*align])
	}

	format := clip.Format
	format.SampleRate = sampleRate
	return &Clip{Format: format, Samples: out}, nil
}

// Coerce converts clip to target: bit depth first, then channels, then rate.
func Coerce(clip *Clip, target Format) (*Clip, error) {
	if target.BitsPerSample != OutputBitsPerSample {
		return nil, formatError("coerce", "unsupported target bit depth %d", target.BitsPerSample)
	}
	out, err := ConvertBitDepth(clip)
	if err != nil {
		return nil, err
	}
	if out, err = ConvertChannels(out, target.Channels); err != nil {
		return nil, err
	}
	return Resample(out, target.SampleRate)
}

// Concat joins clips that already share an identical format.
func Concat(clips []*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return nil, formatError("concat", "no clips")
	}
	format := clips[0].Format
	total := 0
	for i, clip := range clips {
		if clip.Format != format {
			return nil, formatError("concat", "clip %d format %s does not match %s", i, clip.Format, format)
		}
		total += len(clip.Samples)
	}
	out := make([]byte, 0, total)
	for _, clip := range clips {
		out = append(out, clip.Samples...)
	}
	return &Clip{Format: format, Samples: out}, nil
}

func (c *Clip) clone() *Clip {
	samples := make([]byte, len(c.Samples))
	copy(samples, c.Samples)
	return &Clip{Format: c.Format, Samples: samples}
}

func (c *Clip) requireSixteenBit(operation string) error {
	if err := c.Format.validate(); err != nil {
		return formatError(operation, "%v", err)
	}
	if c.BitsPerSample != OutputBitsPerSample {
		return formatError(operation, "expected 16-bit samples, got %d", c.BitsPerSample)
	}
	return nil
}

func clamp16(v int64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
