// Package logger provides a structured, levelled logger built on log/slog.
//
// WithCtx returns the per-request logger installed by the Logger middleware,
// so every line written while serving a terminal carries its request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("sale recorded", "invoice", inv)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/yellowrose/possrv/config"
)

var L *slog.Logger

// sink is the optional Mongo handler attached by AttachMongo.
var sink *MongoHandler

func init() {
	L = slog.New(newHandler(os.Stdout, config.AppEnv()))
	slog.SetDefault(L)
}

func newHandler(w io.Writer, env string) slog.Handler {
	switch env {
	case "production", "prod":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AttachMongo fans log records out to a MongoDB collection in addition to
// stdout. It is a no-op when uri is empty.
func AttachMongo(uri, db, collection string) error {
	if uri == "" {
		return nil
	}
	h, err := NewMongoHandler(uri, db, collection)
	if err != nil {
		return err
	}
	sink = h
	L = slog.New(NewMultiHandler(L.Handler(), h))
	slog.SetDefault(L)
	return nil
}

// Close flushes the Mongo sink, if any.
func Close() {
	if sink != nil {
		sink.Close()
		sink = nil
	}
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the *slog.Logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
