package app

import (
	"context"
	"log/slog"

	"github.com/zettagrid/geocontrol/alog"
)

func NewLoggedRequest[Req any, Res any](logger alog.Logger, handler Request[Req, Res]) Request[Req, Res] {
	return &loggingDecorator[Req, Res]{logger: logger, kind: "request", base: handler}
}

func NewLoggedCommand[C any](logger alog.Logger, handler Command[C]) Command[C] {
	return requestAsCommand[C]{
		base: &loggingDecorator[C, struct{}]{logger: logger, kind: "command", base: commandAsRequest[C]{handler}},
	}
}

func NewLoggedQuery[Q any, Res any](logger alog.Logger, handler Query[Q, Res]) Query[Q, Res] {
	return &loggingDecorator[Q, Res]{logger: logger, kind: "query", base: handler}
}

type loggingDecorator[In any, Out any] struct {
	logger alog.Logger
	kind   string
	base   Request[In, Out]
}

func (d *loggingDecorator[In, Out]) H(ctx context.Context, in In) (Out, error) { //nolint:ireturn // valid use of generics
	cmdName := commandName(in)

	d.logger.DebugContext(ctx, "executing "+d.kind,
		slog.String("command", cmdName),
	)

	out, err := d.base.H(ctx, in)

	if err != nil {
		d.logger.DebugContext(ctx, "failed to execute "+d.kind,
			slog.String("command", cmdName),
			slog.String("error", err.Error()),
		)
	} else {
		d.logger.DebugContext(ctx, d.kind+" executed successfully",
			slog.String("command", cmdName))
	}

	return out, err //nolint:wrapcheck // decorate but not change anything
}
