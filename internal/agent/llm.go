package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// LLMAgent generates transcripts through the chat completions Client.
type LLMAgent struct {
	client *Client
	logger *slog.Logger
}

// NewLLMAgent wraps client.
func NewLLMAgent(client *Client, logger *slog.Logger) *LLMAgent {
	return &LLMAgent{client: client, logger: logging.NewComponentLogger(logger, "agent")}
}

// GenerateTranscript asks the model for the episode conversation.
func (a *LLMAgent) GenerateTranscript(ctx context.Context, title, description string, guests []podcast.Guest) (podcast.GeneratedTranscript, error) {
	if a == nil || a.client == nil {
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrConfiguration, "agent", "generate transcript", "chat client unavailable", nil)
	}
	started := time.Now()
	content, err := a.client.CompleteJSON(ctx, TranscriptPrompt, BuildUserPrompt(title, description, guests))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return podcast.GeneratedTranscript{}, err
		}
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrExternal, "agent", "generate transcript", "chat completion failed", err)
	}
	transcript, err := ParseTranscript(content)
	if err != nil {
		return podcast.GeneratedTranscript{}, err
	}
	logging.WithContext(ctx, a.logger).Info("transcript generated",
		logging.String("model", a.client.cfg.Model),
		logging.Int("segments", len(transcript.Segments)),
		logging.Int("word_count", transcript.WordCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	return transcript, nil
}
