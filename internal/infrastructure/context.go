package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type traceIDKey struct{}

// NewTraceID returns a random UUID.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID tags ctx so log records, progress events and problem
// responses of one request or CLI run share an id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// EnsureTraceID keeps an existing id and issues one otherwise.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, NewTraceID())
}
