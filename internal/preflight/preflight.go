package preflight

import (
	"context"

	"podstudio/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every check that applies to cfg. Network checks only dial;
// they never spend agent or speech credits.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Audio directory", cfg.Storage.LocalDir))
	}

	results = append(results, CheckDatabase(ctx, cfg.DatabasePath()))
	if cfg.State.Backend == config.StateRedis {
		results = append(results, CheckRedis(ctx, cfg.State))
	}

	agentURL := cfg.Agent.BaseURL
	if cfg.Agent.Provider == config.AgentCohere && agentURL == "" {
		agentURL = defaultCohereURL
	}
	results = append(results, CheckEndpoint(ctx, "Transcript agent", agentURL, cfg.Agent.APIKey))
	results = append(results, CheckEndpoint(ctx, "Text-to-speech", cfg.TTS.BaseURL, cfg.TTS.APIKey))

	if cfg.Events.Enabled {
		results = append(results, CheckBrokers(ctx, cfg.Events.Brokers))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
