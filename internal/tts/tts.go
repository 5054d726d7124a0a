// Package tts defines the text-to-speech contract the audio engine depends on
// and an HTTP client for OpenAI-compatible speech endpoints.
package tts

import "context"

// Options controls a single synthesis request.
type Options struct {
	// Voice selects the provider voice. Empty means the client default.
	Voice string
}

// Result holds synthesized audio.
type Result struct {
	// Audio is a complete WAV container.
	Audio       []byte
	ContentType string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) (*Result, error)
}
