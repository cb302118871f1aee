package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Logger writes JSON records tagged with service, hostname, action and the
// request ID carried by the context.
type Logger struct {
	handler *slog.Logger
}

func New(service, level string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{
		handler: slog.New(h).With(
			slog.String("service", service),
			slog.String("hostname", hostname),
		),
	}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{handler: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func (l *Logger) Info(ctx context.Context, action, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, action, msg, args...)
}

func (l *Logger) Debug(ctx context.Context, action, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, action, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, action, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, action, msg, args...)
}

func (l *Logger) Error(ctx context.Context, action, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.log(ctx, slog.LevelError, action, msg, args...)
}

// Slog exposes the underlying logger for libraries that take one.
func (l *Logger) Slog() *slog.Logger { return l.handler }

func (l *Logger) log(ctx context.Context, level slog.Level, action, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}
	attrs := append([]any{
		slog.String("action", action),
		slog.String("request_id", RequestID(ctx)),
	}, args...)
	l.handler.Log(ctx, level, msg, attrs...)
}

func NewRequestID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
