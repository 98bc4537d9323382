// Package logging configures structured logging for pool host processes.
package logging

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the standard library logger to emit structured JSON and
// returns the underlying slog.Logger so callers can inject it into the pool
// engine rather than relying on the package-level default. All log lines
// include the service name and environment when provided.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				level := strings.ToUpper(attr.Value.String())
				return slog.String("severity", level)
			}
			if attr.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so dependencies that still call
	// log.Printf route through the same structured sink.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// RotatingWriter is satisfied by gopkg.in/natefinch/lumberjack.v2's Logger.
type RotatingWriter interface {
	Write(p []byte) (int, error)
}

// SetupRotating behaves like Setup but tees output through a size-rotated
// file sink in addition to stdout, for long-running daemons such as poold.
func SetupRotating(service, env string, fileWriter RotatingWriter) *slog.Logger {
	base := Setup(service, env)
	if fileWriter == nil {
		return base
	}
	fileHandler := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{})
	logger := slog.New(&teeHandler{a: base.Handler(), b: fileHandler}).
		With(slog.String("service", strings.TrimSpace(service)))
	return logger
}

// teeHandler fans a log record out to two handlers so poold can keep the
// human-readable stdout stream while also rotating a durable file copy.
type teeHandler struct {
	a, b slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.a.Enabled(ctx, level) || t.b.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := t.a.Handle(ctx, record.Clone()); err != nil {
		return err
	}
	return t.b.Handle(ctx, record.Clone())
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{a: t.a.WithAttrs(attrs), b: t.b.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{a: t.a.WithGroup(name), b: t.b.WithGroup(name)}
}
