package agent

import (
	"context"
	"fmt"
	"log/slog"

	"podstudio/internal/config"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// Agent generates a transcript for an episode.
type Agent interface {
	GenerateTranscript(ctx context.Context, title, description string, guests []podcast.Guest) (podcast.GeneratedTranscript, error)
}

// New builds the agent selected by cfg.Provider.
func New(cfg config.Agent, logger *slog.Logger) (Agent, error) {
	switch cfg.Provider {
	case config.AgentOpenRouter, "":
		client := NewClient(Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
		})
		return NewLLMAgent(client, logger), nil
	case config.AgentCohere:
		return NewCohereAgent(CohereConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "agent", "init",
			fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}
