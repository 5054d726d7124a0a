package audio

import (
	"math"
	"time"
)

// Silence returns a clip of digital silence in format lasting gap. The frame
// count is round(gap seconds * sample rate).
func Silence(format Format, gap time.Duration) *Clip {
	frames := 0
	if gap > 0 && format.SampleRate > 0 {
		frames = int(math.Round(gap.Seconds() * float64(format.SampleRate)))
	}
	samples := make([]byte, frames*format.BlockAlign())
	if format.BitsPerSample == 8 {
		// 8-bit PCM is unsigned; silence sits at the midpoint.
		for i := range samples {
			samples[i] = 0x80
		}
	}
	return &Clip{Format: format, Samples: samples}
}
