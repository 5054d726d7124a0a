package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"podstudio/internal/agent"
	"podstudio/internal/audio"
	"podstudio/internal/config"
	"podstudio/internal/events"
	"podstudio/internal/logging"
	"podstudio/internal/notifications"
	"podstudio/internal/objectstore"
	"podstudio/internal/pipeline"
	"podstudio/internal/redisstate"
	"podstudio/internal/store"
	"podstudio/internal/tts"
	"podstudio/internal/workflow"
)

// BuildOptions selects which parts of the stack are assembled.
type BuildOptions struct {
	// Generation wires the agent, speech, object storage and runner.
	// Read-only commands leave it unset and need no credentials.
	Generation bool
	// Listeners attaches ntfy notifications and the Kafka event stream.
	Listeners bool
}

// Stack is the assembled generation service shared by the daemon and the
// synchronous CLI commands.
type Stack struct {
	Config *config.Config
	Store  *store.Store
	States workflow.StateStore
	Actor  *workflow.Actor
	// Runner is nil unless BuildOptions.Generation was set.
	Runner *workflow.Runner

	redis    *redisstate.Store
	notifier *notifications.Listener
	events   *events.KafkaPublisher
	logger   *slog.Logger
}

// Build opens the stores and wires the workflow actor. Runs launched by the
// returned Runner derive their context from ctx, so canceling ctx marks them
// interrupted by shutdown.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BuildOptions) (_ *Stack, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Generation {
		if err := cfg.ValidateGeneration(); err != nil {
			return nil, err
		}
	}
	stack := &Stack{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = stack.Close()
		}
	}()

	stack.Store, err = store.Open(cfg)
	if err != nil {
		return nil, err
	}
	stack.States = stack.Store
	if cfg.State.Backend == config.StateRedis {
		stack.redis, err = redisstate.Open(ctx, cfg.State)
		if err != nil {
			return nil, err
		}
		stack.States = stack.redis
	}

	stack.Actor = workflow.NewActor(stack.States, logger)

	if opts.Listeners {
		stack.notifier = notifications.NewListener(
			notifications.NewService(cfg.Notifications),
			cfg.Notifications.Completed,
			cfg.Notifications.Failed,
			logger,
		)
		stack.Actor.Subscribe(stack.notifier)
		if cfg.Events.Enabled {
			stack.events, err = events.Open(cfg.Events, logger)
			if err != nil {
				return nil, err
			}
			stack.Actor.Subscribe(stack.events)
		}
	}

	if opts.Generation {
		orchestrator, err := buildOrchestrator(ctx, cfg, stack.Store, logger)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(cfg.Workflow.RunTimeoutSeconds) * time.Second
		stack.Runner = workflow.NewRunner(ctx, stack.Actor, orchestrator, timeout, logger)
	}
	return stack, nil
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	transcriptAgent, err := agent.New(cfg.Agent, logger)
	if err != nil {
		return nil, err
	}
	speech := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Model:          cfg.TTS.Model,
		DefaultVoice:   cfg.TTS.DefaultVoice,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	objects, err := objectstore.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return pipeline.NewOrchestrator(pipeline.Dependencies{
		Episodes:    st,
		Agent:       transcriptAgent,
		Repository:  st,
		Synthesizer: audio.NewEngine(speech, logger),
		Objects:     objects,
	}, AudioOptions(cfg), logger)
}

// AudioOptions derives engine options from the tts and audio sections.
func AudioOptions(cfg *config.Config) audio.Options {
	return audio.Options{
		Voices:           audio.NewVoiceMap(cfg.TTS.Voices, cfg.TTS.DefaultVoice),
		Gap:              time.Duration(cfg.Audio.GapMillis) * time.Millisecond,
		TargetSampleRate: cfg.Audio.TargetSampleRate,
		EnforceMono:      cfg.Audio.EnforceMono,
	}
}

// Close flushes listeners and closes every store. It does not wait for
// in-flight runs.
func (s *Stack) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
