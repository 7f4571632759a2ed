// Package logging builds the process logger and carries a per-request logger
// through context.Context.
//
//	log := logging.From(ctx, fallback)
//	log.Info("product created", "product_id", id)
//	// → time=... level=INFO msg="product created" request_id=... product_id=7
package logging

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey struct{}

// New returns a JSON logger in production and a text logger at debug level
// everywhere else.
func New(w io.Writer, production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Inject stores log in ctx.
func Inject(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// From returns the logger stored in ctx, or fallback when there is none.
// A nil fallback means slog.Default().
func From(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
