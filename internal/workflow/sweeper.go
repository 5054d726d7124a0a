package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"podstudio/internal/logging"
	"podstudio/internal/services"
)

// DefaultRunTimeout is the ceiling applied when none is configured.
const DefaultRunTimeout = time.Hour

// Sweeper fails active runs whose start time is older than the ceiling.
type Sweeper struct {
	actor   *Actor
	store   StateStore
	ceiling time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper constructs a sweeper for actor's store.
func NewSweeper(actor *Actor, store StateStore, ceiling time.Duration, logger *slog.Logger) *Sweeper {
	if ceiling <= 0 {
		ceiling = DefaultRunTimeout
	}
	return &Sweeper{
		actor:   actor,
		store:   store,
		ceiling: ceiling,
		logger:  logging.NewComponentLogger(logger, "workflow-sweeper"),
	}
}

// Sweep fails every active run started before now minus the ceiling and
// returns the affected episode ids.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	active, err := s.store.ListActiveWorkflowStates(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-s.ceiling)
	var expired []string
	for _, state := range active {
		if state.StartedAt == nil || !state.StartedAt.Before(cutoff) {
			continue
		}
		message := TimeoutMessage(s.ceiling)
		if _, err := s.actor.Fail(ctx, state.EpisodeID, state.RunID, message); err != nil {
			if errors.Is(err, services.ErrConflict) {
				// The run finished or restarted between listing and failing.
				continue
			}
			return expired, err
		}
		logging.WarnWithContext(s.logger, "run exceeded timeout; marked failed", "run_timeout", "check agent and tts latency",
			logging.EpisodeID(state.EpisodeID),
			logging.RunID(state.RunID),
			logging.Duration("elapsed", now.Sub(*state.StartedAt)),
			logging.String("step", state.CurrentStep),
		)
		expired = append(expired, state.EpisodeID)
	}
	return expired, nil
}

// Start schedules Sweep on a cron schedule such as "@every 1m".
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = "@every 1m"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("timeout sweep failed", logging.Error(err),
				logging.String(logging.FieldEventType, "sweep_failed"),
				logging.String(logging.FieldErrorHint, "check workflow state store access"),
			)
		}
	}); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "schedule sweep", fmt.Sprintf("invalid schedule %q", schedule), err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("timeout sweep scheduled", logging.String("schedule", schedule), logging.Duration("ceiling", s.ceiling))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// TimeoutMessage is the error recorded for runs failed by the sweep.
func TimeoutMessage(ceiling time.Duration) string {
	return services.Wrap(services.ErrTimeout, "workflow", "sweep", fmt.Sprintf("run exceeded %s", ceiling), nil).Error()
}

// RecoverOrphans fails every active run left behind by a previous process.
// Callers must hold the single-instance lock so no live run is affected.
func RecoverOrphans(ctx context.Context, actor *Actor, store StateStore) ([]string, error) {
	active, err := store.ListActiveWorkflowStates(ctx)
	if err != nil {
		return nil, err
	}
	recovered := make([]string, 0, len(active))
	for _, state := range active {
		if _, err := actor.Fail(ctx, state.EpisodeID, state.RunID, OrphanMessage); err != nil {
			if errors.Is(err, services.ErrConflict) {
				continue
			}
			return recovered, err
		}
		recovered = append(recovered, state.EpisodeID)
	}
	return recovered, nil
}

// OrphanMessage is recorded for runs interrupted by a restart.
const OrphanMessage = "interrupted: service restarted"
