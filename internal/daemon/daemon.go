package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"podstudio/internal/api"
	"podstudio/internal/config"
	"podstudio/internal/logging"
	"podstudio/internal/notifications"
	"podstudio/internal/workflow"
)

// Components are the collaborators the daemon drives.
type Components struct {
	Actor    *workflow.Actor
	States   workflow.StateStore
	Runner   *workflow.Runner
	Episodes api.Episodes
}

// Daemon owns the single-instance lock and the background services.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	actor   *workflow.Actor
	states  workflow.StateStore
	runner  *workflow.Runner
	sweeper *workflow.Sweeper
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool             `json:"running"`
	ActiveRuns   int              `json:"active_runs"`
	Active       []workflow.State `json:"active,omitempty"`
	APIAddress   string           `json:"api_address,omitempty"`
	LockFilePath string           `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, components Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components.Actor == nil || components.States == nil || components.Runner == nil || components.Episodes == nil {
		return nil, errors.New("daemon requires config, actor, state store, runner, and episode source")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	ceiling := time.Duration(cfg.Workflow.RunTimeoutSeconds) * time.Second

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		actor:    components.Actor,
		states:   components.States,
		runner:   components.Runner,
		sweeper:  workflow.NewSweeper(components.Actor, components.States, ceiling, logger),
		lockPath: cfg.LockPath(),
	}
	if bind := strings.TrimSpace(cfg.API.Bind); bind != "" {
		router := api.NewRouter(api.Dependencies{
			Runs:     components.Runner,
			States:   components.Actor,
			Episodes: components.Episodes,
			Token:    cfg.API.Token,
		}, logger)
		d.api = newAPIServer(bind, router, logger)
	}
	return d, nil
}

// Start acquires the daemon lock, fails orphaned runs, schedules the timeout
// sweep and starts serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	lock, err := AcquireLock(d.lockPath)
	if err != nil {
		return err
	}
	d.lock = lock

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.startServices(d.ctx); err != nil {
		d.sweeper.Stop()
		_ = d.lock.Unlock()
		d.lock = nil
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("podstudio daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) startServices(ctx context.Context) error {
	recovered, err := workflow.RecoverOrphans(ctx, d.actor, d.states)
	if err != nil {
		return fmt.Errorf("recover orphaned runs: %w", err)
	}
	if len(recovered) > 0 {
		logging.WarnWithContext(d.logger, "orphaned runs marked failed", "orphans_recovered",
			"start a new run for the affected episodes",
			logging.Int("count", len(recovered)),
			logging.String("episodes", strings.Join(recovered, ",")),
		)
	}
	if err := d.sweeper.Start(ctx, d.cfg.Workflow.SweepSchedule); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	if err := d.api.start(ctx); err != nil {
		return err
	}
	return nil
}

// Stop stops accepting requests, cancels in-flight runs, waits up to the
// configured shutdown timeout for them to record their outcome and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.sweeper.Stop()
	d.drain(time.Duration(d.cfg.Workflow.ShutdownTimeoutSeconds) * time.Second)
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.lock = nil
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("podstudio daemon stopped")
}

func (d *Daemon) drain(timeout time.Duration) {
	d.runner.CancelAll()
	done := make(chan struct{})
	go func() {
		d.runner.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		logging.WarnWithContext(d.logger, "runs still active after shutdown timeout", "shutdown_timeout",
			"affected runs are failed as orphans on next start",
			logging.Int("active_runs", d.runner.Active()),
			logging.Duration("timeout", timeout),
		)
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		ActiveRuns:   d.runner.Active(),
		APIAddress:   d.api.addr(),
		LockFilePath: d.lockPath,
	}
	active, err := d.states.ListActiveWorkflowStates(ctx)
	if err != nil {
		d.logger.Warn("failed to list active runs", logging.Error(err))
		return status
	}
	status.Active = active
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	return SendTestNotification(ctx, d.cfg)
}

// SendTestNotification sends a test push with cfg's ntfy settings.
func SendTestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg.Notifications)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
