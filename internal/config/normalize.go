package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeState()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeAgent()
	c.normalizeTTS()
	c.normalizeWorkflow()
	c.normalizeEvents()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("PODSTUDIO_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeState() {
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	if c.State.Backend == "" {
		c.State.Backend = StateSQLite
	}
	c.State.RedisAddr = strings.TrimSpace(c.State.RedisAddr)
	if c.State.RedisAddr == "" {
		c.State.RedisAddr = defaultRedisAddr
	}
	if c.State.RedisPassword == "" {
		if value, ok := os.LookupEnv("PODSTUDIO_REDIS_PASSWORD"); ok {
			c.State.RedisPassword = value
		}
	}
	c.State.RedisPrefix = strings.Trim(strings.TrimSpace(c.State.RedisPrefix), ":")
	if c.State.RedisPrefix == "" {
		c.State.RedisPrefix = defaultRedisPrefix
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultLocalAudioDir
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.Profile = strings.TrimSpace(c.Storage.Profile)
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	return nil
}

func (c *Config) normalizeAgent() {
	c.Agent.Provider = strings.ToLower(strings.TrimSpace(c.Agent.Provider))
	if c.Agent.Provider == "" {
		c.Agent.Provider = AgentOpenRouter
	}
	c.Agent.APIKey = strings.TrimSpace(c.Agent.APIKey)
	if c.Agent.APIKey == "" {
		envKeys := []string{"PODSTUDIO_AGENT_API_KEY", "OPENROUTER_API_KEY"}
		if c.Agent.Provider == AgentCohere {
			envKeys = []string{"PODSTUDIO_AGENT_API_KEY", "COHERE_API_KEY"}
		}
		c.Agent.APIKey = firstEnv(envKeys...)
	}
	c.Agent.BaseURL = strings.TrimSpace(c.Agent.BaseURL)
	if c.Agent.BaseURL == "" && c.Agent.Provider == AgentOpenRouter {
		c.Agent.BaseURL = defaultAgentBaseURL
	}
	c.Agent.Model = strings.TrimSpace(c.Agent.Model)
	if c.Agent.Provider == AgentCohere && (c.Agent.Model == "" || c.Agent.Model == defaultAgentModel) {
		c.Agent.Model = defaultCohereModel
	}
	if c.Agent.Model == "" {
		c.Agent.Model = defaultAgentModel
	}
	if c.Agent.TimeoutSeconds <= 0 {
		c.Agent.TimeoutSeconds = defaultAgentTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = firstEnv("PODSTUDIO_TTS_API_KEY", "OPENAI_API_KEY")
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.DefaultVoice = strings.TrimSpace(c.TTS.DefaultVoice)
	if c.TTS.DefaultVoice == "" {
		c.TTS.DefaultVoice = defaultTTSVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.RunTimeoutSeconds <= 0 {
		c.Workflow.RunTimeoutSeconds = defaultRunTimeoutSeconds
	}
	c.Workflow.SweepSchedule = strings.TrimSpace(c.Workflow.SweepSchedule)
	if c.Workflow.SweepSchedule == "" {
		c.Workflow.SweepSchedule = defaultSweepSchedule
	}
	if c.Workflow.ShutdownTimeoutSeconds <= 0 {
		c.Workflow.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
}

func (c *Config) normalizeEvents() {
	brokers := make([]string, 0, len(c.Events.Brokers))
	for _, broker := range c.Events.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.Events.Brokers = brokers
	c.Events.Topic = strings.TrimSpace(c.Events.Topic)
	if c.Events.Topic == "" {
		c.Events.Topic = defaultEventsTopic
	}
	c.Events.ClientID = strings.TrimSpace(c.Events.ClientID)
	if c.Events.ClientID == "" {
		c.Events.ClientID = defaultEventsClientID
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
