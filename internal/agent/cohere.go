package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

const defaultCohereModel = "command-r-plus"

// CohereConfig captures the Cohere connection settings.
type CohereConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type chatFunc func(ctx context.Context, request *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error)

// CohereAgent generates transcripts with the Cohere chat API.
type CohereAgent struct {
	chat   chatFunc
	model  string
	apiKey string
	logger *slog.Logger
}

// NewCohereAgent builds an agent backed by the Cohere SDK client.
func NewCohereAgent(cfg CohereConfig, logger *slog.Logger) *CohereAgent {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	opts := []cohereoption.RequestOption{
		cohereclient.WithToken(strings.TrimSpace(cfg.APIKey)),
		cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, cohereclient.WithBaseURL(base))
	}
	client := cohereclient.NewClient(opts...)
	return newCohereAgent(func(ctx context.Context, request *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error) {
		return client.Chat(ctx, request)
	}, cfg, logger)
}

func newCohereAgent(chat chatFunc, cfg CohereConfig, logger *slog.Logger) *CohereAgent {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultCohereModel
	}
	return &CohereAgent{
		chat:   chat,
		model:  model,
		apiKey: strings.TrimSpace(cfg.APIKey),
		logger: logging.NewComponentLogger(logger, "agent"),
	}
}

// GenerateTranscript asks Cohere for the episode conversation.
func (a *CohereAgent) GenerateTranscript(ctx context.Context, title, description string, guests []podcast.Guest) (podcast.GeneratedTranscript, error) {
	if a.apiKey == "" {
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrConfiguration, "agent", "generate transcript", "cohere api key required", nil)
	}
	started := time.Now()
	preamble := TranscriptPrompt
	temperature := transcriptTemp
	resp, err := a.chat(ctx, &cohere.ChatRequest{
		Message:     BuildUserPrompt(title, description, guests),
		Model:       &a.model,
		Preamble:    &preamble,
		Temperature: &temperature,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return podcast.GeneratedTranscript{}, err
		}
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrExternal, "agent", "generate transcript", "cohere chat failed", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrExternal, "agent", "generate transcript", "cohere returned an empty response", nil)
	}
	transcript, err := ParseTranscript(resp.Text)
	if err != nil {
		return podcast.GeneratedTranscript{}, err
	}
	logging.WithContext(ctx, a.logger).Info("transcript generated",
		logging.String("model", a.model),
		logging.String("provider", "cohere"),
		logging.Int("segments", len(transcript.Segments)),
		logging.Int("word_count", transcript.WordCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	return transcript, nil
}
