// Package logging defines the structured-logging interface used by the
// exporter components and its slog-backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "export finished", "upload_id", id, "outcome", outcome)
type Logger interface {
	// Debug logs diagnostic details that are off in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Redact shortens a pseudonymous identifier (health code) so that log lines
// can be correlated without carrying the full value.
func Redact(s string) string {
	const keep = 4
	if len(s) <= keep {
		return s
	}
	return s[:keep] + "…"
}
