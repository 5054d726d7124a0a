package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/tts"
)

type fakeSpeech struct {
	mu     sync.Mutex
	clips  map[string]*Clip
	fail   map[string]error
	voices []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string, opts tts.Options) (*tts.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, opts.Voice)
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	clip, ok := f.clips[text]
	if !ok {
		return &tts.Result{Audio: []byte("not a wav")}, nil
	}
	encoded, err := EncodeWAV(clip)
	if err != nil {
		return nil, err
	}
	return &tts.Result{Audio: encoded, ContentType: "audio/wav"}, nil
}

func toneClip(format Format, seconds float64) *Clip {
	frames := int(math.Round(seconds * float64(format.SampleRate)))
	samples := make([]byte, frames*format.BlockAlign())
	for i := range samples {
		samples[i] = byte(i % 7)
	}
	return &Clip{Format: format, Samples: samples}
}

func decodeOutput(t *testing.T, container []byte) *Clip {
	t.Helper()
	clip, err := DecodeWAV(container)
	if err != nil {
		t.Fatalf("DecodeWAV(output): %v", err)
	}
	return clip
}

func TestEngineTwoSpeakerScenario(t *testing.T) {
	mono16k := Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	speech := &fakeSpeech{clips: map[string]*Clip{
		"Hi":    toneClip(mono16k, 1),
		"Hello": toneClip(mono16k, 1),
	}}
	engine := NewEngine(speech, nil)

	segments := []podcast.TranscriptSegment{{Speaker: "Host", Content: "Hi"}, {Speaker: "G1", Content: "Hello"}}
	container, err := engine.Synthesize(context.Background(), segments, Options{
		Voices: NewVoiceMap(map[string]string{"host": "alloy", "G1": "verse"}, "echo"),
		Gap:    100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	header, err := ProbeWAV(container)
	if err != nil {
		t.Fatalf("ProbeWAV: %v", err)
	}
	if header.Format != mono16k {
		t.Fatalf("unexpected output format %s", header.Format)
	}
	frameTolerance := time.Second / 16000
	if diff := header.Duration() - 2100*time.Millisecond; diff > frameTolerance || diff < -frameTolerance {
		t.Fatalf("expected ~2.1s, got %s", header.Duration())
	}
	if len(speech.voices) != 2 || speech.voices[0] != "alloy" || speech.voices[1] != "verse" {
		t.Fatalf("unexpected voices %v", speech.voices)
	}
}

func TestEngineInsertsSilenceOnlyBetweenSegments(t *testing.T) {
	format := Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
	speech := &fakeSpeech{clips: map[string]*Clip{
		"one":   toneClip(format, 0.5),
		"two":   toneClip(format, 0.25),
		"three": toneClip(format, 0.75),
	}}
	engine := NewEngine(speech, nil)

	var progress []int
	segments := []podcast.TranscriptSegment{{Speaker: "A", Content: "one"}, {Speaker: "B", Content: "two"}, {Speaker: "A", Content: "three"}}
	container, err := engine.Synthesize(context.Background(), segments, Options{
		Gap:       150 * time.Millisecond,
		OnSegment: func(done, total int) { progress = append(progress, done*100/total) },
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	out := decodeOutput(t, container)
	segmentFrames := 12000 + 6000 + 18000
	gapFrames := int(math.Round(0.150 * 24000))
	if out.Frames() != segmentFrames+2*gapFrames {
		t.Fatalf("expected %d frames, got %d", segmentFrames+2*gapFrames, out.Frames())
	}
	if len(progress) != 3 || progress[2] != 100 {
		t.Fatalf("unexpected progress callbacks %v", progress)
	}
}

func TestEngineCoercesMixedFormats(t *testing.T) {
	speech := &fakeSpeech{clips: map[string]*Clip{
		"stereo": toneClip(Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, 1),
		"lofi":   toneClip(Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}, 1),
	}}
	engine := NewEngine(speech, nil)

	segments := []podcast.TranscriptSegment{{Speaker: "A", Content: "stereo"}, {Speaker: "B", Content: "lofi"}}
	container, err := engine.Synthesize(context.Background(), segments, Options{
		Gap:              150 * time.Millisecond,
		TargetSampleRate: 16000,
		EnforceMono:      true,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	out := decodeOutput(t, container)
	if out.Format != (Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}) {
		t.Fatalf("unexpected output format %s", out.Format)
	}
	// 44100 frames -> 16000, 150ms gap at 16kHz -> 2400, 8000 -> 16000.
	if out.Frames() != 16000+2400+16000 {
		t.Fatalf("unexpected frame count %d", out.Frames())
	}
}

func TestEngineGapLengthFollowsOutputRate(t *testing.T) {
	source := Format{SampleRate: 11025, Channels: 1, BitsPerSample: 16}
	speech := &fakeSpeech{clips: map[string]*Clip{
		"one":   toneClip(source, 1),
		"two":   toneClip(source, 0.5),
		"three": toneClip(source, 0.75),
	}}
	segments := []podcast.TranscriptSegment{{Speaker: "A", Content: "one"}, {Speaker: "B", Content: "two"}, {Speaker: "A", Content: "three"}}
	container, err := NewEngine(speech, nil).Synthesize(context.Background(), segments, Options{
		Gap:              150 * time.Millisecond,
		TargetSampleRate: 48000,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	ratio := 48000.0 / 11025.0
	speechFrames := 0
	for _, segment := range segments {
		speechFrames += int(math.Round(float64(speech.clips[segment.Content].Frames()) * ratio))
	}
	gapFrames := int(math.Round(0.150 * 48000))
	out := decodeOutput(t, container)
	if want := speechFrames + 2*gapFrames; out.Frames() != want {
		t.Fatalf("expected %d frames (%d speech + 2 x %d gap), got %d", want, speechFrames, gapFrames, out.Frames())
	}
}

func TestEngineKeepsFirstClipLayoutWithoutOverrides(t *testing.T) {
	speech := &fakeSpeech{clips: map[string]*Clip{
		"a": toneClip(Format{SampleRate: 22050, Channels: 2, BitsPerSample: 24}, 0.1),
		"b": toneClip(Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}, 0.1),
	}}
	container, err := NewEngine(speech, nil).Synthesize(context.Background(),
		[]podcast.TranscriptSegment{{Speaker: "x", Content: "a"}, {Speaker: "y", Content: "b"}},
		Options{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	out := decodeOutput(t, container)
	if out.Format != (Format{SampleRate: 22050, Channels: 2, BitsPerSample: 16}) {
		t.Fatalf("unexpected output format %s", out.Format)
	}
}

func TestEngineReportsFailingSegment(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	boom := errors.New("provider down")
	speech := &fakeSpeech{
		clips: map[string]*Clip{"ok": toneClip(format, 0.1)},
		fail:  map[string]error{"bad": boom},
	}
	engine := NewEngine(speech, nil)

	_, err := engine.Synthesize(context.Background(), []podcast.TranscriptSegment{
		{Speaker: "A", Content: "ok"},
		{Speaker: "B", Content: "bad"},
		{Speaker: "C", Content: "ok"},
	}, Options{})
	var segErr *SegmentError
	if !errors.As(err, &segErr) || segErr.Index != 1 || segErr.Speaker != "B" {
		t.Fatalf("expected segment 1 error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if len(speech.voices) != 2 {
		t.Fatalf("synthesis should stop at the failing segment, got %d calls", len(speech.voices))
	}

	_, err = engine.Synthesize(context.Background(), []podcast.TranscriptSegment{{Speaker: "A", Content: "garbage"}}, Options{})
	if !errors.As(err, &segErr) || !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode segment error, got %v", err)
	}

	if _, err := engine.Synthesize(context.Background(), nil, Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestVoiceMapResolve(t *testing.T) {
	voices := NewVoiceMap(map[string]string{"Host": "alloy", "Straße": "onyx", "": "ignored"}, "echo")
	tests := map[string]string{
		"host":    "alloy",
		" HOST ":  "alloy",
		"STRASSE": "onyx",
		"guest":   "echo",
	}
	for speaker, want := range tests {
		if got := voices.Resolve(speaker); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", speaker, got, want)
		}
	}
}
