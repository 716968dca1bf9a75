package services

import "context"

// ctxKey scopes the values this package stores on a context.
type ctxKey int

const (
	keyJobID ctxKey = iota
	keyStage
	keyRequestID
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithJobID attaches the job being processed. Empty ids leave ctx unchanged.
func WithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, keyJobID, id)
}

func JobIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyJobID) }

// WithStage records the pipeline stage currently running.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, keyStage, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyStage) }

// WithRequestID carries the API correlation id into handlers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, keyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyRequestID) }
