package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"podstudio/internal/logging"
	"podstudio/internal/workflow"
)

const deliveryTimeout = 30 * time.Second

// Listener announces terminal workflow transitions. Deliveries run in the
// background so the actor is never held up by ntfy.
type Listener struct {
	service   Service
	completed bool
	failed    bool
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewListener returns a workflow listener that notifies on completed and/or
// failed runs.
func NewListener(service Service, onCompleted, onFailed bool, logger *slog.Logger) *Listener {
	return &Listener{
		service:   service,
		completed: onCompleted,
		failed:    onFailed,
		logger:    logging.NewComponentLogger(logger, "notifications"),
	}
}

// OnTransition implements workflow.Listener.
func (l *Listener) OnTransition(ctx context.Context, prev, next workflow.State) {
	if l == nil || l.service == nil || prev.Status == next.Status {
		return
	}
	var deliver func(context.Context) error
	switch {
	case next.Status == workflow.StatusCompleted && l.completed && next.Result != nil:
		result := *next.Result
		deliver = func(ctx context.Context) error {
			return l.service.NotifyGenerationCompleted(ctx, next.EpisodeID, result)
		}
	case next.Status == workflow.StatusFailed && l.failed:
		deliver = func(ctx context.Context) error {
			return l.service.NotifyGenerationFailed(ctx, next.EpisodeID, next.Error)
		}
	default:
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		if err := deliver(sendCtx); err != nil {
			l.logger.Warn("notification delivery failed",
				logging.EpisodeID(next.EpisodeID),
				logging.String("status", string(next.Status)),
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (l *Listener) Wait() {
	l.wg.Wait()
}
