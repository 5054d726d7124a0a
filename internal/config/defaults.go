package config

// Backend identifiers.
const (
	StateSQLite = "sqlite"
	StateRedis  = "redis"

	StorageLocal = "local"
	StorageS3    = "s3"

	AgentOpenRouter = "openrouter"
	AgentCohere     = "cohere"
)

const (
	defaultConfigPath             = "~/.config/podstudio/config.toml"
	defaultDataDir                = "~/.local/share/podstudio"
	defaultLogDir                 = "~/.local/share/podstudio/logs"
	defaultLocalAudioDir          = "~/.local/share/podstudio/audio"
	defaultAPIBind                = "127.0.0.1:7590"
	defaultRedisAddr              = "127.0.0.1:6379"
	defaultRedisPrefix            = "podstudio"
	defaultAgentBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultAgentModel             = "google/gemini-3-flash-preview"
	defaultCohereModel            = "command-r-plus"
	defaultAgentReferer           = "https://github.com/podstudio/podstudio"
	defaultAgentTitle             = "Podstudio Transcript Agent"
	defaultAgentTimeoutSeconds    = 300
	defaultTTSBaseURL             = "https://api.openai.com/v1/audio/speech"
	defaultTTSModel               = "gpt-4o-mini-tts"
	defaultTTSVoice               = "alloy"
	defaultTTSTimeoutSeconds      = 120
	defaultAudioGapMillis         = 150
	defaultRunTimeoutSeconds      = 3600
	defaultSweepSchedule          = "@every 1m"
	defaultShutdownTimeoutSeconds = 30
	defaultEventsTopic            = "podstudio.workflow"
	defaultEventsClientID         = "podstudio"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		State: State{
			Backend:     StateSQLite,
			RedisAddr:   defaultRedisAddr,
			RedisPrefix: defaultRedisPrefix,
		},
		Storage: Storage{
			Backend:  StorageLocal,
			LocalDir: defaultLocalAudioDir,
		},
		Agent: Agent{
			Provider:       AgentOpenRouter,
			BaseURL:        defaultAgentBaseURL,
			Model:          defaultAgentModel,
			Referer:        defaultAgentReferer,
			Title:          defaultAgentTitle,
			TimeoutSeconds: defaultAgentTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			DefaultVoice:   defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Audio: Audio{
			GapMillis: defaultAudioGapMillis,
		},
		Workflow: Workflow{
			RunTimeoutSeconds:      defaultRunTimeoutSeconds,
			SweepSchedule:          defaultSweepSchedule,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Events: Events{
			Topic:    defaultEventsTopic,
			ClientID: defaultEventsClientID,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
