package testsupport

import (
	"math"
	"testing"

	"podstudio/internal/audio"
)

// ToneWAV returns a WAV container holding seconds of a repeating sample
// pattern in the requested format.
func ToneWAV(t testing.TB, sampleRate, channels, bitsPerSample int, seconds float64) []byte {
	t.Helper()

	format := audio.Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: bitsPerSample}
	frames := int(math.Round(seconds * float64(sampleRate)))
	samples := make([]byte, frames*format.BlockAlign())
	for i := range samples {
		samples[i] = byte(i * 31)
	}
	data, err := audio.EncodeWAV(&audio.Clip{Format: format, Samples: samples})
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return data
}
