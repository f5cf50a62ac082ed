// Package app defines the handler shapes of use cases and decorates them
// with logging, metrics, tracing and validation.
package app

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zettagrid/geocontrol/alog"
)

// Request can produce side effects and return data.
type Request[Req any, Res any] interface {
	H(ctx context.Context, req Req) (Res, error)
}

// Command produces side effects, e.g. mutate state.
type Command[C any] interface {
	H(ctx context.Context, cmd C) error
}

// Query does not produce side effects and returns data.
type Query[Q any, Res any] interface {
	H(ctx context.Context, query Q) (Res, error)
}

// NewInstrumentedRequest wraps req so that every call is traced, then metered, then logged.
func NewInstrumentedRequest[Req any, Res any](
	traceProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	logger alog.Logger,
	req Request[Req, Res],
) Request[Req, Res] {
	return NewTracedRequest(traceProvider, NewMeteredRequest(meterProvider, NewLoggedRequest(logger, req)))
}

// NewInstrumentedCommand is NewInstrumentedRequest for a Command.
func NewInstrumentedCommand[C any](
	traceProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	logger alog.Logger,
	cmd Command[C],
) Command[C] {
	return NewTracedCommand(traceProvider, NewMeteredCommand(meterProvider, NewLoggedCommand(logger, cmd)))
}

// NewInstrumentedQuery is NewInstrumentedRequest for a Query.
func NewInstrumentedQuery[Q any, Res any](
	traceProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	logger alog.Logger,
	query Query[Q, Res],
) Query[Q, Res] {
	return NewTracedQuery(traceProvider, NewMeteredQuery(meterProvider, NewLoggedQuery(logger, query)))
}

// commandAsRequest and requestAsCommand convert between the shapes,
// so one decorator implementation serves all three.
type commandAsRequest[C any] struct {
	base Command[C]
}

func (c commandAsRequest[C]) H(ctx context.Context, cmd C) (struct{}, error) {
	return struct{}{}, c.base.H(ctx, cmd) //nolint:wrapcheck // decorators pass errors through
}

type requestAsCommand[C any] struct {
	base Request[C, struct{}]
}

func (r requestAsCommand[C]) H(ctx context.Context, cmd C) error {
	_, err := r.base.H(ctx, cmd)

	return err //nolint:wrapcheck // decorators pass errors through
}

// commandName names the type of cmd for logs, metrics and spans.
// Types of a bounded context are prefixed with the context, e.g.
// geo.application.ResolveVisitorCountryQuery, all others are named like %T.
func commandName(cmd any) string {
	_, afterContexts, ok := strings.Cut(reflect.TypeOf(cmd).PkgPath(), "/contexts/")
	if !ok {
		return fmt.Sprintf("%T", cmd)
	}

	contextName, _, ok := strings.Cut(afterContexts, "/internal/")
	if !ok {
		return fmt.Sprintf("%T", cmd)
	}

	return fmt.Sprintf("%s.%T", contextName, cmd)
}
