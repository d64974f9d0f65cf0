// Package logging defines the structured-logging seam used across the
// service. Production wraps slog; tests pass a logger writing to a discard
// handler.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "link issued", "link_id", id, "documents", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given key-value
	// pairs.
	With(args ...any) Logger
}
