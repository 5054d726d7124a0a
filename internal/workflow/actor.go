package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// Actor serializes workflow operations per episode and persists every
// transition before returning.
type Actor struct {
	store  StateStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu         sync.Mutex
	partitions map[string]*partition

	listenersMu sync.RWMutex
	listeners   []Listener
}

type partition struct {
	mu   sync.Mutex
	refs int
}

// ActorOption customizes an Actor.
type ActorOption func(*Actor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ActorOption {
	return func(a *Actor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithListeners registers transition listeners.
func WithListeners(listeners ...Listener) ActorOption {
	return func(a *Actor) {
		a.listeners = append(a.listeners, listeners...)
	}
}

// NewActor constructs an Actor backed by store.
func NewActor(store StateStore, logger *slog.Logger, opts ...ActorOption) *Actor {
	actor := &Actor{
		store:      store,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		partitions: make(map[string]*partition),
	}
	for _, opt := range opts {
		opt(actor)
	}
	return actor
}

// Subscribe registers an additional listener.
func (a *Actor) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	a.listenersMu.Lock()
	a.listeners = append(a.listeners, listener)
	a.listenersMu.Unlock()
}

// Start admits a new run. It fails with ErrConflict while a run is active.
func (a *Actor) Start(ctx context.Context, episodeID string) (State, error) {
	return a.mutate(ctx, episodeID, "start", func(current State, now time.Time) (State, bool, error) {
		if current.Status.IsActive() {
			return current, false, conflict("start", "episode %s already has an active run (%s, %d%%)", current.EpisodeID, current.Status, current.Progress)
		}
		started := now
		return State{
			EpisodeID: current.EpisodeID,
			RunID:     a.newID(),
			Status:    StatusGeneratingTranscript,
			StartedAt: &started,
		}, true, nil
	})
}

// Status returns the current state without modifying it.
func (a *Actor) Status(ctx context.Context, episodeID string) (State, error) {
	episodeID, err := normalizeEpisodeID(episodeID)
	if err != nil {
		return State{}, err
	}
	release := a.acquire(episodeID)
	defer release()
	return a.load(ctx, episodeID)
}

// Update merges step, progress, and status changes into an active run.
// Progress may not move backwards and status may only advance from
// generating_transcript to generating_audio.
func (a *Actor) Update(ctx context.Context, episodeID string, update Update) (State, error) {
	return a.mutate(ctx, episodeID, "update", func(current State, _ time.Time) (State, bool, error) {
		if err := checkRun(current, update.RunID, "update"); err != nil {
			return current, false, err
		}
		next := current
		if update.Step != nil {
			next.CurrentStep = strings.TrimSpace(*update.Step)
		}
		if update.Progress != nil {
			progress := *update.Progress
			if progress < 0 || progress > 100 {
				return current, false, services.Wrap(services.ErrValidation, "workflow", "update", fmt.Sprintf("progress %d out of range", progress), nil)
			}
			if progress < current.Progress {
				return current, false, conflict("update", "progress regression %d -> %d", current.Progress, progress)
			}
			next.Progress = progress
		}
		if update.Status != nil && *update.Status != current.Status {
			if current.Status != StatusGeneratingTranscript || *update.Status != StatusGeneratingAudio {
				return current, false, conflict("update", "illegal transition %s -> %s", current.Status, *update.Status)
			}
			next.Status = *update.Status
		}
		return next, next != current, nil
	})
}

// Complete records a successful outcome. Completing an already completed
// record with the same result is a no-op.
func (a *Actor) Complete(ctx context.Context, episodeID, runID string, result podcast.GenerationResult) (State, error) {
	return a.mutate(ctx, episodeID, "complete", func(current State, now time.Time) (State, bool, error) {
		if current.Status == StatusCompleted && current.Result != nil && *current.Result == result &&
			(runID == "" || runID == current.RunID) {
			return current, false, nil
		}
		if err := checkRun(current, runID, "complete"); err != nil {
			return current, false, err
		}
		completed := now
		next := current
		next.Status = StatusCompleted
		next.Progress = 100
		next.CompletedAt = &completed
		next.Error = ""
		next.Result = &result
		return next, true, nil
	})
}

// Fail records a failed outcome. A partial result, if any, is preserved.
func (a *Actor) Fail(ctx context.Context, episodeID, runID, message string) (State, error) {
	return a.mutate(ctx, episodeID, "fail", func(current State, now time.Time) (State, bool, error) {
		if err := checkRun(current, runID, "fail"); err != nil {
			return current, false, err
		}
		message = strings.TrimSpace(message)
		if message == "" {
			message = "generation failed"
		}
		completed := now
		next := current
		next.Status = StatusFailed
		next.CompletedAt = &completed
		next.Error = message
		return next, true, nil
	})
}

// Reset forces the record back to idle regardless of its current status.
func (a *Actor) Reset(ctx context.Context, episodeID string) (State, error) {
	return a.mutate(ctx, episodeID, "reset", func(current State, _ time.Time) (State, bool, error) {
		next := IdleState(current.EpisodeID)
		return next, current.Status != StatusIdle || current.RunID != "" || current.Progress != 0, nil
	})
}

type transition func(current State, now time.Time) (next State, changed bool, err error)

// replaceAttempts bounds how often mutate reloads after another process
// changed the record between load and write.
const replaceAttempts = 3

func (a *Actor) mutate(ctx context.Context, episodeID, operation string, fn transition) (State, error) {
	episodeID, err := normalizeEpisodeID(episodeID)
	if err != nil {
		return State{}, err
	}
	release := a.acquire(episodeID)
	defer release()

	for attempt := 1; ; attempt++ {
		current, err := a.load(ctx, episodeID)
		if err != nil {
			return State{}, err
		}
		now := a.now().UTC()
		next, changed, err := fn(current, now)
		if err != nil {
			return current, err
		}
		if !changed {
			return current, nil
		}
		next.EpisodeID = episodeID
		next.UpdatedAt = now
		err = a.store.ReplaceWorkflowState(ctx, current, next)
		if errors.Is(err, ErrStateChanged) {
			a.logger.Debug("workflow state changed by another writer; reloading",
				logging.EpisodeID(episodeID),
				logging.String("operation", operation),
				logging.Int("attempt", attempt),
			)
			if attempt < replaceAttempts {
				continue
			}
			return current, conflict(operation, "episode %s is being modified by another process", episodeID)
		}
		if err != nil {
			return current, err
		}

		if current.Status != next.Status {
			a.logger.Info("workflow transition",
				logging.EpisodeID(episodeID),
				logging.String("operation", operation),
				logging.String("from", string(current.Status)),
				logging.String("to", string(next.Status)),
				logging.RunID(next.RunID),
			)
		}
		a.notify(ctx, current, next)
		return next, nil
	}
}

func (a *Actor) load(ctx context.Context, episodeID string) (State, error) {
	state, err := a.store.LoadWorkflowState(ctx, episodeID)
	if err != nil {
		return State{}, err
	}
	if state.EpisodeID == "" {
		state.EpisodeID = episodeID
	}
	if state.Status == "" {
		state.Status = StatusIdle
	}
	return state, nil
}

func (a *Actor) notify(ctx context.Context, prev, next State) {
	a.listenersMu.RLock()
	listeners := append([]Listener(nil), a.listeners...)
	a.listenersMu.RUnlock()
	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.WarnWithContext(a.logger, "workflow listener panicked", "listener_panic", "inspect listener implementation",
						logging.EpisodeID(next.EpisodeID),
						logging.Any("panic", r),
					)
				}
			}()
			listener.OnTransition(ctx, prev, next)
		}()
	}
}

// acquire locks the partition for episodeID and returns its release func.
// Partitions are dropped once no caller holds or waits on them.
func (a *Actor) acquire(episodeID string) func() {
	a.mu.Lock()
	p, ok := a.partitions[episodeID]
	if !ok {
		p = &partition{}
		a.partitions[episodeID] = p
	}
	p.refs++
	a.mu.Unlock()

	p.mu.Lock()
	return func() {
		p.mu.Unlock()
		a.mu.Lock()
		p.refs--
		if p.refs == 0 {
			delete(a.partitions, episodeID)
		}
		a.mu.Unlock()
	}
}

func checkRun(current State, runID, operation string) error {
	if !current.Status.IsActive() {
		return conflict(operation, "episode %s has no active run (status %s)", current.EpisodeID, current.Status)
	}
	if runID != "" && runID != current.RunID {
		return conflict(operation, "run %s is no longer current for episode %s", runID, current.EpisodeID)
	}
	return nil
}

func conflict(operation, format string, args ...any) error {
	return services.Wrap(services.ErrConflict, "workflow", operation, fmt.Sprintf(format, args...), nil)
}

func normalizeEpisodeID(episodeID string) (string, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return "", services.Wrap(services.ErrValidation, "workflow", "", "episode id required", nil)
	}
	return episodeID, nil
}
