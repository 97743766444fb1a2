package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"pricecompare/internal/common/types"
)

// Context keys for logging attributes
type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	actorIDKey       contextKey = "actor_id"
	itemCodeKey      contextKey = "item_code"
	supplierKey      contextKey = "supplier"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Setup initializes the global logger with the given configuration.
func Setup(cfg Config) {
	level := parseLevel(cfg.Level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id types.CorrelationID) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// WithActorID adds the acting principal to the context.
func WithActorID(ctx context.Context, id types.ActorID) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// WithItemCode tags every record logged under ctx with the item being priced.
func WithItemCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, itemCodeKey, code)
}

// WithSupplier tags every record logged under ctx with the supplier being priced.
func WithSupplier(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, supplierKey, name)
}

// WithPair tags ctx with both sides of an item-supplier pair.
func WithPair(ctx context.Context, code, supplier string) context.Context {
	return WithSupplier(WithItemCode(ctx, code), supplier)
}

// CorrelationIDFromContext extracts the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) types.CorrelationID {
	if id, ok := ctx.Value(correlationIDKey).(types.CorrelationID); ok {
		return id
	}
	return ""
}

// ActorIDFromContext extracts the actor ID from context.
func ActorIDFromContext(ctx context.Context) types.ActorID {
	if id, ok := ctx.Value(actorIDKey).(types.ActorID); ok {
		return id
	}
	return ""
}

// FromContext returns a logger carrying the request and ledger attributes
// found on ctx.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if corrID := CorrelationIDFromContext(ctx); !corrID.IsEmpty() {
		logger = logger.With("correlation_id", corrID.String())
	}

	if actorID := ActorIDFromContext(ctx); !actorID.IsEmpty() {
		logger = logger.With("actor_id", actorID.String())
	}

	for _, key := range []contextKey{itemCodeKey, supplierKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			logger = logger.With(string(key), v)
		}
	}

	return logger
}

// Info logs at info level.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// InfoContext logs at info level with context attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// DebugContext logs at debug level with context attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

// WarnContext logs at warn level with context attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs at error level with context attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}
