package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/tts"
)

// Options controls one Synthesize call.
type Options struct {
	Voices VoiceMap
	// Gap is the silence inserted between consecutive segments.
	Gap time.Duration
	// TargetSampleRate overrides the output rate. Zero keeps the first clip's rate.
	TargetSampleRate int
	// EnforceMono forces single-channel output.
	EnforceMono bool
	// OnSegment, if set, is called after each segment is synthesized.
	OnSegment func(done, total int)
}

// Engine renders transcript segments into a single WAV container.
type Engine struct {
	speech tts.Synthesizer
	logger *slog.Logger
}

// NewEngine constructs an engine backed by speech.
func NewEngine(speech tts.Synthesizer, logger *slog.Logger) *Engine {
	return &Engine{
		speech: speech,
		logger: logging.NewComponentLogger(logger, "audio"),
	}
}

// Synthesize speaks every segment in order, coerces the clips to one 16-bit
// format, joins them with silence gaps and returns the WAV container.
// The first failing segment aborts the call with a *SegmentError.
func (e *Engine) Synthesize(ctx context.Context, segments []podcast.TranscriptSegment, opts Options) ([]byte, error) {
	if e == nil || e.speech == nil {
		return nil, services.Wrap(services.ErrConfiguration, "audio", "synthesize", "speech synthesizer unavailable", nil)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "audio", "synthesize", "no segments to synthesize", nil)
	}

	clips := make([]*Clip, 0, len(segments))
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clip, err := e.renderSegment(ctx, i, segment, opts.Voices)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
		if opts.OnSegment != nil {
			opts.OnSegment(i+1, len(segments))
		}
	}

	target := Format{
		SampleRate:    clips[0].SampleRate,
		Channels:      clips[0].Channels,
		BitsPerSample: OutputBitsPerSample,
	}
	if opts.TargetSampleRate > 0 {
		target.SampleRate = opts.TargetSampleRate
	}
	if opts.EnforceMono {
		target.Channels = 1
	}

	// Gaps are generated at the output rate so their length does not pick up
	// resampling rounding.
	gap := Silence(target, opts.Gap)
	sequence := make([]*Clip, 0, len(clips)*2-1)
	for i, clip := range clips {
		coerced, err := Coerce(clip, target)
		if err != nil {
			return nil, &SegmentError{Index: i, Speaker: segments[i].Speaker, Err: err}
		}
		if i > 0 {
			sequence = append(sequence, gap)
		}
		sequence = append(sequence, coerced)
	}

	merged, err := Concat(sequence)
	if err != nil {
		return nil, err
	}
	container, err := EncodeWAV(merged)
	if err != nil {
		return nil, err
	}
	e.logger.Info("audio rendered",
		logging.Int("segments", len(segments)),
		logging.String("format", target.String()),
		logging.Duration("duration", merged.Duration()),
		logging.Int("bytes", len(container)),
	)
	return container, nil
}

func (e *Engine) renderSegment(ctx context.Context, index int, segment podcast.TranscriptSegment, voices VoiceMap) (*Clip, error) {
	text := strings.TrimSpace(segment.Content)
	if text == "" {
		return nil, &SegmentError{
			Index:   index,
			Speaker: segment.Speaker,
			Err:     services.Wrap(services.ErrValidation, "audio", "synthesize", "empty segment text", nil),
		}
	}
	voice := voices.Resolve(segment.Speaker)
	result, err := e.speech.Synthesize(ctx, text, tts.Options{Voice: voice})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &SegmentError{Index: index, Speaker: segment.Speaker, Err: err}
	}
	if result == nil {
		return nil, &SegmentError{Index: index, Speaker: segment.Speaker, Err: fmt.Errorf("speech synthesizer returned no audio")}
	}
	clip, err := DecodeWAV(result.Audio)
	if err != nil {
		return nil, &SegmentError{Index: index, Speaker: segment.Speaker, Err: err}
	}
	e.logger.Debug("segment synthesized",
		logging.Int("index", index),
		logging.String("speaker", segment.Speaker),
		logging.String("voice", voice),
		logging.String("format", clip.Format.String()),
		logging.Int("frames", clip.Frames()),
	)
	return clip, nil
}
