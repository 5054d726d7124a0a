package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"podstudio/internal/services"
)

func TestConvertBitDepth(t *testing.T) {
	tests := []struct {
		name   string
		bits   int
		sample []byte
		want   []int16
	}{
		{name: "8-bit unsigned", bits: 8, sample: []byte{0, 128, 255}, want: []int16{-32768, 0, 32512}},
		{name: "24-bit", bits: 24, sample: []byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80, 0x00, 0x01, 0x00}, want: []int16{32767, -32768, 1}},
		{name: "32-bit", bits: 32, sample: func() []byte {
			out := make([]byte, 8)
			binary.LittleEndian.PutUint32(out[0:], uint32(0x12345678))
			v := int32(-65536)
			binary.LittleEndian.PutUint32(out[4:], uint32(v))
			return out
		}(), want: []int16{0x1234, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &Clip{Format: Format{SampleRate: 8000, Channels: 1, BitsPerSample: tt.bits}, Samples: tt.sample}
			out, err := ConvertBitDepth(clip)
			if err != nil {
				t.Fatalf("ConvertBitDepth: %v", err)
			}
			got := samples16(t, out)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("sample %d: got %d want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConvertChannels(t *testing.T) {
	stereo := &Clip{Format: Format{SampleRate: 8000, Channels: 2, BitsPerSample: 16}, Samples: pcm16(100, 201, -100, -201, 32767, 32767)}
	mono, err := ConvertChannels(stereo, 1)
	if err != nil {
		t.Fatalf("ConvertChannels: %v", err)
	}
	got := samples16(t, mono)
	want := []int16{151, -151, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("downmix sample %d: got %d want %d", i, got[i], want[i])
		}
	}

	back, err := ConvertChannels(mono, 2)
	if err != nil {
		t.Fatalf("ConvertChannels: %v", err)
	}
	dup := samples16(t, back)
	if len(dup) != 6 || dup[0] != 151 || dup[1] != 151 || dup[2] != -151 || dup[3] != -151 {
		t.Fatalf("unexpected upmix %v", dup)
	}

	surround := &Clip{Format: Format{SampleRate: 8000, Channels: 6, BitsPerSample: 16}, Samples: make([]byte, 12)}
	if _, err := ConvertChannels(surround, 2); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected unsupported conversion error, got %v", err)
	}
	if _, err := ConvertChannels(&Clip{Format: Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}}, 1); err == nil {
		t.Fatal("expected error for non-16-bit input")
	}
}

func TestResampleFrameCount(t *testing.T) {
	tests := []struct {
		from, to, frames, want int
	}{
		{from: 44100, to: 16000, frames: 441, want: 160},
		{from: 8000, to: 16000, frames: 8000, want: 16000},
		{from: 48000, to: 22050, frames: 1000, want: 459},
		{from: 16000, to: 16000, frames: 10, want: 10},
		{from: 22050, to: 16000, frames: 0, want: 0},
	}
	for _, tt := range tests {
		clip := &Clip{Format: Format{SampleRate: tt.from, Channels: 2, BitsPerSample: 16}, Samples: make([]byte, tt.frames*4)}
		out, err := Resample(clip, tt.to)
		if err != nil {
			t.Fatalf("Resample %d->%d: %v", tt.from, tt.to, err)
		}
		if out.Frames() != tt.want || out.SampleRate != tt.to {
			t.Fatalf("Resample %d->%d of %d frames: got %d frames, want %d", tt.from, tt.to, tt.frames, out.Frames(), tt.want)
		}
	}
}

func TestResampleNearestNeighbour(t *testing.T) {
	clip := &Clip{Format: Format{SampleRate: 4, Channels: 1, BitsPerSample: 16}, Samples: pcm16(10, 20, 30, 40)}
	up, err := Resample(clip, 8)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	got := samples16(t, up)
	// i/2 rounded half away from zero, clamped to the last frame.
	want := []int16{10, 20, 20, 30, 30, 40, 40, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: got %d want %d (all %v)", i, got[i], want[i], got)
		}
	}
}

func TestCoerceAppliesAllStages(t *testing.T) {
	clip := &Clip{Format: Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}, Samples: []byte{128, 255, 0, 128}}
	out, err := Coerce(clip, Format{SampleRate: 16000, Channels: 2, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if out.Format != (Format{SampleRate: 16000, Channels: 2, BitsPerSample: 16}) {
		t.Fatalf("unexpected format %s", out.Format)
	}
	if out.Frames() != 8 {
		t.Fatalf("expected 8 frames, got %d", out.Frames())
	}
	if _, err := Coerce(clip, Format{SampleRate: 16000, Channels: 1, BitsPerSample: 24}); err == nil {
		t.Fatal("expected error for non-16-bit target")
	}
}

func TestSilence(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 2, BitsPerSample: 16}
	clip := Silence(format, 150*time.Millisecond)
	if clip.Frames() != 2400 {
		t.Fatalf("expected 2400 frames, got %d", clip.Frames())
	}
	for _, b := range clip.Samples {
		if b != 0 {
			t.Fatal("16-bit silence must be zero")
		}
	}

	unsigned := Silence(Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}, 10*time.Millisecond)
	if unsigned.Frames() != 80 || unsigned.Samples[0] != 0x80 {
		t.Fatalf("unexpected 8-bit silence frames=%d first=%d", unsigned.Frames(), unsigned.Samples[0])
	}

	if Silence(format, 0).Frames() != 0 {
		t.Fatal("zero gap should produce no frames")
	}
}

func TestConcatRequiresMatchingFormats(t *testing.T) {
	a := &Clip{Format: Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}, Samples: pcm16(1, 2)}
	b := &Clip{Format: Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}, Samples: pcm16(3)}
	merged, err := Concat([]*Clip{a, b})
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if got := samples16(t, merged); len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected merge %v", got)
	}
	c := &Clip{Format: Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16}, Samples: pcm16(4)}
	if _, err := Concat([]*Clip{a, c}); err == nil {
		t.Fatal("expected format mismatch error")
	}
	if _, err := Concat(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
