package contract

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the leveled logger used by the scheduler, pipeline and stores.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
}

// DefaultLogger writes text records through log/slog.
type DefaultLogger struct {
	logger *slog.Logger
}

var _ Logger = &DefaultLogger{} // Compile-time check

// NewDefaultLogger logs to stderr at the given level.
func NewDefaultLogger(level slog.Level) *DefaultLogger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo logs to w at the given level.
func NewLoggerTo(w io.Writer, level slog.Level) *DefaultLogger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return &DefaultLogger{logger: logger}
}

// NopLogger discards everything. Tests and the MCP server use it.
func NopLogger() *DefaultLogger {
	return NewLoggerTo(io.Discard, slog.LevelError+1)
}

const logPrefix = "[autoindex] "

func (d *DefaultLogger) Debug(msg string, args ...any) {
	d.logger.Debug(logPrefix+msg, args...)
}

func (d *DefaultLogger) Info(msg string, args ...any) {
	d.logger.Info(logPrefix+msg, args...)
}

func (d *DefaultLogger) Warn(msg string, args ...any) {
	d.logger.Warn(logPrefix+msg, args...)
}

func (d *DefaultLogger) Error(msg string, args ...any) {
	d.logger.Error(logPrefix+msg, args...)
}

type defaultArgsKey struct{}

func getDefaultArgs(ctx context.Context) []any {
	args, _ := ctx.Value(defaultArgsKey{}).([]any)
	return args
}

// WithDefaultArgs attaches key/value pairs that every *Ctx log call on ctx will carry.
func WithDefaultArgs(ctx context.Context, args ...any) context.Context {
	dargs := append(append([]any(nil), getDefaultArgs(ctx)...), args...)
	return context.WithValue(ctx, defaultArgsKey{}, dargs)
}

func (d *DefaultLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	d.logger.DebugContext(ctx, logPrefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	d.logger.InfoContext(ctx, logPrefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	d.logger.WarnContext(ctx, logPrefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *DefaultLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	d.logger.ErrorContext(ctx, logPrefix+msg, append(args, getDefaultArgs(ctx)...)...)
}
