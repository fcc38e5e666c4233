// Package logging defines the structured, context-aware logger used by the
// FanPulse client. The only production implementation wraps log/slog.
package logging

import "context"

// Logger takes key/value pairs after the message:
//
//	log.Info(ctx, "session verified", "email", user.Email, "tier", user.Tier)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
