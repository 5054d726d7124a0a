package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podstudio/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PODSTUDIO_AGENT_API_KEY", "OPENROUTER_API_KEY", "COHERE_API_KEY",
		"PODSTUDIO_TTS_API_KEY", "OPENAI_API_KEY", "PODSTUDIO_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "podstudio")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "podstudio.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Storage.LocalDir != filepath.Join(wantData, "audio") {
		t.Fatalf("unexpected local audio dir: %q", cfg.Storage.LocalDir)
	}
	if cfg.State.Backend != config.StateSQLite {
		t.Fatalf("expected sqlite state backend, got %q", cfg.State.Backend)
	}
	if cfg.Audio.GapMillis != 150 {
		t.Fatalf("expected default gap of 150ms, got %d", cfg.Audio.GapMillis)
	}
	if cfg.Workflow.RunTimeoutSeconds != 3600 {
		t.Fatalf("expected one hour run ceiling, got %d", cfg.Workflow.RunTimeoutSeconds)
	}
	if cfg.Workflow.SweepSchedule != "@every 1m" {
		t.Fatalf("unexpected sweep schedule %q", cfg.Workflow.SweepSchedule)
	}
	if err := cfg.ValidateGeneration(); err == nil {
		t.Fatal("expected generation validation to require an agent key")
	}
}

func TestLoadReadsEnvFallbacks(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "agent-key")
	t.Setenv("OPENAI_API_KEY", "tts-key")
	t.Setenv("PODSTUDIO_API_TOKEN", "secret")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Agent.APIKey != "agent-key" {
		t.Fatalf("expected agent key from env, got %q", cfg.Agent.APIKey)
	}
	if cfg.TTS.APIKey != "tts-key" {
		t.Fatalf("expected tts key from env, got %q", cfg.TTS.APIKey)
	}
	if cfg.API.Token != "secret" {
		t.Fatalf("expected api token from env, got %q", cfg.API.Token)
	}
	if err := cfg.ValidateGeneration(); err != nil {
		t.Fatalf("expected generation config to validate, got %v", err)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	clearCredentialEnv(t)
	os.Unsetenv("COHERE_API_KEY")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	configPath := filepath.Join(dir, "podstudio.toml")
	if err := os.WriteFile(configPath, []byte("[agent]\nprovider = \"cohere\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("COHERE_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("COHERE_API_KEY") })

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if cfg.Agent.Provider != config.AgentCohere {
		t.Fatalf("expected cohere provider, got %q", cfg.Agent.Provider)
	}
	if cfg.Agent.Model != "command-r-plus" {
		t.Fatalf("expected cohere default model, got %q", cfg.Agent.Model)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(dir, "data")
	custom.Storage.Backend = config.StorageS3
	custom.Storage.Bucket = "podcast-audio"
	custom.Storage.Prefix = "/audio/"
	custom.State.Backend = "REDIS"
	custom.Audio.TargetSampleRate = 16000
	custom.Audio.EnforceMono = true
	custom.TTS.Voices = map[string]string{"Host": "alloy", "Ada": "verse"}
	custom.Events.Brokers = []string{" 127.0.0.1:9092 ", ""}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Prefix != "audio" {
		t.Fatalf("expected trimmed prefix, got %q", cfg.Storage.Prefix)
	}
	if cfg.State.Backend != config.StateRedis {
		t.Fatalf("expected normalized redis backend, got %q", cfg.State.Backend)
	}
	if cfg.Audio.TargetSampleRate != 16000 || !cfg.Audio.EnforceMono {
		t.Fatalf("unexpected audio config %+v", cfg.Audio)
	}
	if cfg.TTS.Voices["Ada"] != "verse" {
		t.Fatalf("expected voice mapping to load, got %v", cfg.TTS.Voices)
	}
	if len(cfg.Events.Brokers) != 1 || cfg.Events.Brokers[0] != "127.0.0.1:9092" {
		t.Fatalf("expected cleaned broker list, got %v", cfg.Events.Brokers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"state backend", func(c *config.Config) { c.State.Backend = "etcd" }, "state.backend"},
		{"s3 bucket", func(c *config.Config) { c.Storage.Backend = config.StorageS3 }, "storage.bucket"},
		{"agent provider", func(c *config.Config) { c.Agent.Provider = "mystery" }, "agent.provider"},
		{"gap", func(c *config.Config) { c.Audio.GapMillis = -1 }, "audio.gap_ms"},
		{"events brokers", func(c *config.Config) { c.Events.Enabled = true }, "events.brokers"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.TTS.Voices["Host"] != "alloy" {
		t.Fatalf("expected sample host voice, got %v", cfg.TTS.Voices)
	}
}
