package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"podstudio/internal/config"
	"podstudio/internal/daemon"
	"podstudio/internal/logging"
	"podstudio/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the podstudio daemon and blocks until ctx is canceled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "podstudio.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	stack, err := Build(signalCtx, cfg, logger, BuildOptions{Generation: true, Listeners: true})
	if err != nil {
		logger.Error("assemble generation stack", logging.Error(err))
		return err
	}
	defer stack.Close()

	d, err := daemon.New(cfg, daemon.Components{
		Actor:    stack.Actor,
		States:   stack.States,
		Runner:   stack.Runner,
		Episodes: stack.Store,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check the lock file, api bind address and state store access"),
		)
		return err
	}
	logStartup(logger, cfg)
	logPreflight(signalCtx, logger, cfg)

	<-signalCtx.Done()
	logger.Info("podstudio daemon shutting down")
	return nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Console:     os.Stdout,
		FilePath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		Development: opts.Development,
	})
}

func logStartup(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String("state_backend", cfg.State.Backend),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("agent_provider", cfg.Agent.Provider),
		logging.String("agent_model", cfg.Agent.Model),
		logging.String("tts_model", cfg.TTS.Model),
		logging.Bool("events_enabled", cfg.Events.Enabled),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.String("api_bind", cfg.API.Bind),
	)
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// logPreflight warns about failed readiness checks. Startup continues.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			"run `podstudio check` and fix the reported dependency",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}
