// Package alog builds the structured loggers used throughout geocontrol.
//
// The loggers are plain *slog.Logger values. Their handler correlates every record
// with the active OTEL span and can change its level at run time via setting.Settings.
package alog

import (
	"context"
	"io"
	"log/slog"
	"math"
)

// Logger interface is a subset of slog.Logger, with the aim to
// encourage the use of the methods offering context.Context,
// so that tracing information can be correlated.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
	LogAttrs(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr)
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
}

var _ Logger = (*slog.Logger)(nil)

// LevelTrace is below slog.LevelDebug and logs every outgoing provider request.
const LevelTrace = slog.Level(-8)

// NewNoop returns a logger that discards every record, e.g. for tests.
func NewNoop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}

// MapLogLevelsToName replaces the default name of a custom log level with a speaking name.
func MapLogLevelsToName(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.LevelKey {
		level, _ := attr.Value.Any().(slog.Level)

		levelLabel, exists := getLevelNames()[level]
		if !exists {
			levelLabel = level.String()
		}

		attr.Value = slog.StringValue(levelLabel)
	}

	return attr
}

func getLevelNames() map[slog.Leveler]string {
	return map[slog.Leveler]string{
		LevelTrace: "TRACE",
	}
}

type ctxKey struct{}

// AddAttr adds attributes to ctx. Every record logged with the returned context carries them.
func AddAttr(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := FromContext(ctx)

	all := make([]slog.Attr, 0, len(existing)+len(attrs))
	all = append(all, existing...)
	all = append(all, attrs...)

	return context.WithValue(ctx, ctxKey{}, all)
}

// FromContext returns the attributes added to ctx via AddAttr.
func FromContext(ctx context.Context) ([]slog.Attr, bool) {
	attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr)

	return attrs, ok && len(attrs) > 0
}
