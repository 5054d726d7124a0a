package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
)

// progressReporter delivers step boundaries to the caller's callback. Percents
// never go backwards and repeats are dropped.
type progressReporter struct {
	fn     podcast.ProgressFunc
	logger *slog.Logger
	last   int
	sent   bool
}

func (r *progressReporter) report(ctx context.Context, step string, percent int, phase podcast.Phase) {
	if r.sent && percent <= r.last {
		return
	}
	r.last = percent
	r.sent = true
	if r.fn == nil {
		return
	}
	if err := r.invoke(ctx, podcast.Progress{Step: step, Percent: percent, Phase: phase}); err != nil {
		r.logger.Warn("progress callback failed",
			logging.String("step", step),
			logging.Int("percent", percent),
			logging.Error(err),
			logging.String(logging.FieldEventType, "progress_callback_failed"),
			logging.String(logging.FieldErrorHint, "generation continues; status may lag"),
		)
	}
}

func (r *progressReporter) invoke(ctx context.Context, progress podcast.Progress) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("progress callback panic: %v", recovered)
		}
	}()
	return r.fn(ctx, progress)
}
