package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAgent(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateGeneration checks the credentials needed to actually run the
// pipeline. Read-only commands (status, reset, import) skip it.
func (c *Config) ValidateGeneration() error {
	if c.Agent.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("agent.api_key is required. Set PODSTUDIO_AGENT_API_KEY or edit %s (create with 'podstudio config init')", defaultPath)
	}
	if c.TTS.APIKey == "" {
		return errors.New("tts.api_key is required. Set PODSTUDIO_TTS_API_KEY or edit the [tts] section")
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.Backend {
	case StateSQLite:
	case StateRedis:
		if c.State.RedisAddr == "" {
			return errors.New("state.redis_addr must be set when state.backend is redis")
		}
		if c.State.RedisDB < 0 {
			return errors.New("state.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("state.backend: unsupported value %q (want sqlite or redis)", c.State.Backend)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is s3")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local or s3)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateAgent() error {
	switch c.Agent.Provider {
	case AgentOpenRouter:
		if c.Agent.BaseURL == "" {
			return errors.New("agent.base_url must be set")
		}
	case AgentCohere:
	default:
		return fmt.Errorf("agent.provider: unsupported value %q (want openrouter or cohere)", c.Agent.Provider)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.GapMillis < 0 {
		return errors.New("audio.gap_ms must be >= 0")
	}
	if c.Audio.TargetSampleRate < 0 {
		return errors.New("audio.target_sample_rate must be >= 0")
	}
	if c.Audio.TargetSampleRate > 384000 {
		return errors.New("audio.target_sample_rate must be <= 384000")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.RunTimeoutSeconds <= 0 {
		return errors.New("workflow.run_timeout_seconds must be positive")
	}
	if c.Workflow.SweepSchedule == "" {
		return errors.New("workflow.sweep_schedule must be set")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if len(c.Events.Brokers) == 0 {
		return errors.New("events.brokers must list at least one broker when events are enabled")
	}
	if c.Events.Topic == "" {
		return errors.New("events.topic must be set when events are enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
