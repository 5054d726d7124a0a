package testsupport

import (
	"path/filepath"
	"testing"

	"podstudio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.LocalDir = filepath.Join(base, "audio")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Agent.APIKey = "test-agent-key"
	cfgVal.TTS.APIKey = "test-tts-key"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithAudioGap overrides the inter-segment silence.
func WithAudioGap(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.GapMillis = millis
	}
}

// WithServiceURLs points the agent and TTS clients at test servers.
func WithServiceURLs(agentURL, ttsURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Agent.BaseURL = agentURL
		b.cfg.TTS.BaseURL = ttsURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
