package logging

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// runIDKey is the context key for the per-invocation run ID.
type runIDKey struct{}

// NewRunID mints a lexicographically sortable run ID. One ID is generated
// per CLI invocation and stamped on every log line of that run.
func NewRunID() string {
	return ulid.Make().String()
}

// ContextWithRunID attaches a run ID to ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID stored in ctx, or "" when absent.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GetOrGenerateRunID returns the run ID from ctx, minting a fresh one when
// the context carries none.
func GetOrGenerateRunID(ctx context.Context) string {
	if id := RunIDFromContext(ctx); id != "" {
		return id
	}
	return NewRunID()
}
