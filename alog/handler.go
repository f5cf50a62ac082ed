package alog

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zettagrid/geocontrol/setting"
)

// SettingLogLevel controls the level of all loggers created WithSettings.
// Its value is the integer of a slog.Level.
var SettingLogLevel = setting.NewKey("geocontrol", "log", "level") //nolint:gochecknoglobals

// LoggerOpt allows to initialise a logger with custom options.
type LoggerOpt func(logger *geoHandler)

// WithHandler adds a slog.Handler to be logged to.
// You can set as many as you want.
func WithHandler(h slog.Handler) LoggerOpt {
	return func(l *geoHandler) {
		l.handlers = append(l.handlers, h)
	}
}

// WithLevel initialises the logger with a starting level.
// To change the level at runtime use Unwrap(logger).SetLevel.
func WithLevel(level slog.Level) LoggerOpt {
	return func(l *geoHandler) {
		l.level = &level
	}
}

// WithSettings initialises the logger to read its level from settings.
// If the level is not set, the level of the logger applies.
func WithSettings(settings setting.Settings) LoggerOpt {
	return func(l *geoHandler) {
		l.settings = settings
	}
}

// New returns a production ready logger.
//
// If no options are given it creates a default handler, logging JSON to Stderr.
// Otherwise, use WithHandler to set your own handlers.
func New(opts ...LoggerOpt) *slog.Logger {
	return slog.New(newGeoHandler(opts...))
}

// NewDevelopment returns a logger ready for local development purposes.
// It logs text to Stderr and ships the records to a local loki instance.
func NewDevelopment(settings setting.Settings) *slog.Logger {
	config := []LoggerOpt{
		WithLevel(slog.LevelDebug),
		WithHandler(slog.NewTextHandler(os.Stderr, getDebugHandlerOptions())),
		WithHandler(NewLokiHandler(nil)),
	}

	if settings != nil {
		config = append(config, WithSettings(settings))
	}

	return New(config...)
}

func newGeoHandler(opts ...LoggerOpt) *geoHandler {
	defaultLevel := slog.LevelInfo

	logger := &geoHandler{
		handlers: []slog.Handler{},
		level:    &defaultLevel,
		settings: nil,
	}

	for _, opt := range opts {
		opt(logger)
	}

	if len(logger.handlers) == 0 {
		logger.handlers = []slog.Handler{slog.NewJSONHandler(os.Stderr, getDefaultHandlerOptions())}
	}

	return logger
}

// geoHandler fans a record out to all handlers.
// It decides on the level for all of them and adds the trace and span IDs.
type geoHandler struct {
	// settings determine the log level, so that multiple replicas log with the same level.
	// The level of individual handlers set via WithHandler is ignored.
	settings setting.Settings

	// level is the minimum record level that will be logged if no settings are present.
	level *slog.Level

	// handlers all get called with the same record.
	handlers []slog.Handler
}

var _ slog.Handler = (*geoHandler)(nil)

func (l *geoHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if l.settings != nil {
		val, err := l.settings.Setting(ctx, SettingLogLevel)
		if err == nil {
			if settingLevel, err := val.Int(); err == nil {
				return level >= slog.Level(settingLevel)
			}
		}
	}

	return level >= *l.level
}

func (l *geoHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)

	record = addTraceAndSpanIDsToLogs(span, record)

	if attrs, ok := FromContext(ctx); ok {
		record.AddAttrs(attrs...)
	}

	addLogsToActiveSpanAsEvent(span, getAttrsFromRecord(record), record)

	var retErr error

	for _, h := range l.handlers {
		err := h.Handle(ctx, record.Clone())
		retErr = errors.Join(retErr, err)
	}

	return retErr
}

func addTraceAndSpanIDsToLogs(span trace.Span, record slog.Record) slog.Record {
	sCtx := span.SpanContext()

	if sCtx.HasTraceID() {
		record.AddAttrs(slog.String("traceID", sCtx.TraceID().String()))
	}

	if sCtx.HasSpanID() {
		record.AddAttrs(slog.String("spanID", sCtx.SpanID().String()))
	}

	return record
}

func addLogsToActiveSpanAsEvent(span trace.Span, attrs []attribute.KeyValue, record slog.Record) {
	if !span.IsRecording() {
		return
	}

	span.AddEvent("log", trace.WithAttributes(attrs...))

	if record.Level >= slog.LevelError {
		span.SetStatus(codes.Error, record.Message)
	}
}

func getAttrsFromRecord(record slog.Record) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("log.severity", record.Level.String()),
		attribute.String("log.message", record.Message),
	}

	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, attribute.String(a.Key, a.Value.String()))

		return true
	})

	return attrs
}

func (l *geoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(l.handlers))

	for i, h := range l.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &geoHandler{
		handlers: handlers,
		level:    l.level,
		settings: l.settings,
	}
}

func (l *geoHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(l.handlers))

	for i, h := range l.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &geoHandler{
		handlers: handlers,
		level:    l.level,
		settings: l.settings,
	}
}

// SetLevel changes the level for all handlers set with WithHandler.
// Even the ones "copied" via any WithX method.
func (l *geoHandler) SetLevel(level slog.Level) {
	*l.level = level
}

// Level returns the fallback log level of the handler.
func (l *geoHandler) Level() slog.Level {
	return l.level.Level()
}

// UsesSettings returns whether this logger is initialised to use settings.
func (l *geoHandler) UsesSettings() bool {
	return l.settings != nil
}

// LevelController offers control over a logger at run time.
// Unwrap a logger to get access to it.
type LevelController interface {
	SetLevel(level slog.Level)
	Level() slog.Level
	UsesSettings() bool
}

// Unwrap returns the LevelController of logger.
// In case logger was not created by this package, it returns nil.
func Unwrap(logger Logger) LevelController { //nolint:ireturn // TestLogger and geoHandler both control levels
	if l, ok := logger.(*TestLogger); ok {
		return l
	}

	if l, ok := logger.(*slog.Logger); ok {
		if h, ok := l.Handler().(*geoHandler); ok {
			return h
		}
	}

	return nil
}

func getDefaultHandlerOptions() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		AddSource:   true,
		Level:       LevelTrace, // the level of geoHandler applies to all handlers.
		ReplaceAttr: MapLogLevelsToName,
	}
}

// getDebugHandlerOptions keeps the log output readable, by removing not essential keys.
func getDebugHandlerOptions() *slog.HandlerOptions {
	opt := getDefaultHandlerOptions()
	opt.AddSource = false

	return opt
}
