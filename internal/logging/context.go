package logging

import (
	"context"
	"log/slog"

	"podstudio/internal/services"
)

// Standard attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldEpisodeID     = "episode_id"
	FieldRunID         = "run_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for log searches.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldEpisodeID, services.EpisodeIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields returns the episode, stage and request tags carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, f := range contextFields {
		if value, ok := f.lookup(ctx); ok {
			attrs = append(attrs, slog.String(f.key, value))
		}
	}
	return attrs
}

// WithContext returns logger tagged with ContextFields(ctx).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return slog.New(logger.Handler().WithAttrs(attrs))
}
