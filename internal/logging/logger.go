// Package logging defines the structured logger used across the service.
// Call sites pass key-value pairs after the message:
//
//	log.Info(ctx, "submission stored", "submission_id", id, "invoices", n)
package logging

import "context"

// Logger is a context-aware, structured logger.
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
