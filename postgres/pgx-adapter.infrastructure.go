package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ pgx.QueryTracer = (*pgxTraceAdapter)(nil)

// pgxTraceAdapter starts one span per query.
// Query arguments are not recorded, they contain visitor addresses.
type pgxTraceAdapter struct {
	tracer trace.Tracer
}

func (p *pgxTraceAdapter) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	conf := conn.Config()

	ctx, _ = p.tracer.Start(ctx, "pgx "+operation(data.SQL),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.name", conf.Database),
			attribute.String("db.user", conf.User),
			attribute.String("server.address", conf.Host),
			attribute.Int("server.port", int(conf.Port)),
			attribute.String("db.statement", data.SQL),
			attribute.Int("db.args", len(data.Args)),
		),
	)

	return ctx
}

func (p *pgxTraceAdapter) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))

	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}

	span.End()
}

// operation returns the leading SQL keyword, e.g. SELECT.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "QUERY"
	}

	return strings.ToUpper(fields[0])
}
