package services

import "context"

type contextKey int

const (
	episodeIDKey contextKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// WithEpisodeID tags ctx with the episode being generated.
func WithEpisodeID(ctx context.Context, id string) context.Context {
	return withValue(ctx, episodeIDKey, id)
}

// EpisodeIDFromContext returns the episode tag, if any.
func EpisodeIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, episodeIDKey)
}

// WithStage tags ctx with the current pipeline step.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the pipeline step tag, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, stageKey)
}

// WithRequestID tags ctx with the API request that triggered the work.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request tag, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, requestIDKey)
}
