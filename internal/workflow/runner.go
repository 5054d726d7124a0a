package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// Pipeline produces a generation result for one episode, reporting progress
// through onProgress.
type Pipeline interface {
	Run(ctx context.Context, episodeID string, onProgress podcast.ProgressFunc) (podcast.GenerationResult, error)
}

// ShutdownMessage is recorded for runs canceled by a process shutdown.
const ShutdownMessage = "interrupted: service shutting down"

// Runner admits runs through the Actor and drives the Pipeline for them.
type Runner struct {
	actor    *Actor
	pipeline Pipeline
	timeout  time.Duration
	base     context.Context
	logger   *slog.Logger

	mu   sync.Mutex
	runs map[string]*activeRun
	wg   sync.WaitGroup
}

type activeRun struct {
	runID  string
	cancel context.CancelFunc
}

// NewRunner constructs a Runner. Background runs launched with Launch derive
// their context from base, not from the caller's request context. timeout
// bounds each run; zero disables the bound.
func NewRunner(base context.Context, actor *Actor, pipeline Pipeline, timeout time.Duration, logger *slog.Logger) *Runner {
	if base == nil {
		base = context.Background()
	}
	runner := &Runner{
		actor:    actor,
		pipeline: pipeline,
		timeout:  timeout,
		base:     base,
		logger:   logging.NewComponentLogger(logger, "workflow-runner"),
		runs:     make(map[string]*activeRun),
	}
	actor.Subscribe(runner)
	return runner
}

// Launch starts a run and executes the pipeline in the background.
func (r *Runner) Launch(ctx context.Context, episodeID string) (State, error) {
	state, err := r.actor.Start(ctx, episodeID)
	if err != nil {
		return state, err
	}
	runCtx := r.track(r.base, state)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(runCtx, state, nil)
	}()
	return state, nil
}

// Run starts a run and executes the pipeline synchronously. observer, if
// set, receives each progress report after it is recorded.
func (r *Runner) Run(ctx context.Context, episodeID string, observer podcast.ProgressFunc) (State, error) {
	state, err := r.actor.Start(ctx, episodeID)
	if err != nil {
		return state, err
	}
	return r.execute(r.track(ctx, state), state, observer)
}

// Active reports the number of runs currently executing in this process.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// CancelAll cancels every executing run.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		run.cancel()
	}
}

// Wait blocks until every background run has recorded its outcome.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// OnTransition cancels a tracked run once its record moves on without it, for
// example after a timeout sweep or an operator reset.
func (r *Runner) OnTransition(_ context.Context, _, next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[next.EpisodeID]
	if !ok {
		return
	}
	if next.RunID != run.runID || !next.Status.IsActive() {
		run.cancel()
	}
}

func (r *Runner) track(parent context.Context, state State) context.Context {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	ctx = services.WithEpisodeID(ctx, state.EpisodeID)
	r.mu.Lock()
	r.runs[state.EpisodeID] = &activeRun{runID: state.RunID, cancel: cancel}
	r.mu.Unlock()
	return ctx
}

func (r *Runner) untrack(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[state.EpisodeID]; ok && run.runID == state.RunID {
		run.cancel()
		delete(r.runs, state.EpisodeID)
	}
}

func (r *Runner) execute(ctx context.Context, state State, observer podcast.ProgressFunc) (State, error) {
	defer r.untrack(state)
	logger := logging.WithContext(ctx, r.logger).With(logging.RunID(state.RunID))
	started := time.Now()
	sampler := logging.NewProgressSampler(0)

	onProgress := func(ctx context.Context, progress podcast.Progress) error {
		status := StatusGeneratingTranscript
		if progress.Phase == podcast.PhaseAudio {
			status = StatusGeneratingAudio
		}
		step := progress.Step
		percent := progress.Percent
		_, err := r.actor.Update(ctx, state.EpisodeID, Update{
			RunID:    state.RunID,
			Step:     &step,
			Progress: &percent,
			Status:   &status,
		})
		if err == nil && sampler.ShouldLog(percent, step) {
			logger.Debug("generation progress",
				logging.String("status", string(status)),
				logging.String("step", step),
				logging.Int("percent", percent),
			)
		}
		if observer != nil {
			if obsErr := observer(ctx, progress); obsErr != nil && err == nil {
				err = obsErr
			}
		}
		return err
	}

	result, runErr := r.pipeline.Run(ctx, state.EpisodeID, onProgress)
	// The outcome must be recorded even when the run context is gone.
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		message := r.failureMessage(ctx, runErr)
		final, err := r.actor.Fail(persistCtx, state.EpisodeID, state.RunID, message)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				logger.Info("run outcome superseded", logging.String("outcome", "failed"), logging.Error(err))
			} else {
				logger.Error("failed to record run failure", logging.Error(err),
					logging.String(logging.FieldEventType, "workflow_persist_failed"),
					logging.String(logging.FieldErrorHint, "check workflow state store access"),
				)
			}
		}
		logger.Warn("generation run failed",
			logging.String("error_kind", services.Kind(runErr)),
			logging.Error(runErr),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "generation_failed"),
			logging.String(logging.FieldErrorHint, "inspect the recorded error and start a new run"),
		)
		return final, runErr
	}

	final, err := r.actor.Complete(persistCtx, state.EpisodeID, state.RunID, result)
	if err != nil {
		logger.Error("failed to record run completion", logging.Error(err),
			logging.String(logging.FieldEventType, "workflow_persist_failed"),
			logging.String(logging.FieldErrorHint, "the transcript and audio are persisted; reset and rerun if needed"),
		)
		return final, err
	}
	logger.Info("generation run completed",
		logging.Int("transcript_version", result.TranscriptVersion),
		logging.String("audio_key", result.Audio.Key),
		logging.Float64("duration_seconds", result.Audio.DurationSeconds),
		logging.Duration("elapsed", time.Since(started)),
	)
	return final, nil
}

func (r *Runner) failureMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return TimeoutMessage(r.timeout)
	case errors.Is(ctx.Err(), context.Canceled) && r.base.Err() != nil:
		return ShutdownMessage
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Sprintf("canceled: %v", err)
	default:
		return err.Error()
	}
}
