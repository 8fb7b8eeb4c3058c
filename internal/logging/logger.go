// Package logging is the structured logger handed to every storage and
// session component. Messages name the tier, key or step involved as
// key/value pairs so a degraded save can be traced from the log alone.
package logging

import "context"

// Logger writes leveled, structured records. args are alternating keys
// and values:
//
//	log.Warn(ctx, "sync disabled", "tier", "synced", "bytes", n, "limit", limit)
type Logger interface {
	// Debug covers per-call detail: degradation attempts, cache hits, sweep entries.
	Debug(ctx context.Context, msg string, args ...any)
	// Info covers state changes the user caused or should know about.
	Info(ctx context.Context, msg string, args ...any)
	// Warn covers fallbacks: sync turned off, a tier unavailable, a corrupt document set aside.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a Logger that adds args to every record, e.g. the tier.
	With(args ...any) Logger
}
