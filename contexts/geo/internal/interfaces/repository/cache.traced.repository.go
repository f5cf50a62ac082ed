package repository

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

const tracerName = "geocontrol.geo"

func NewTracedCache(repo domain.Cache) *TracedCache {
	return &TracedCache{repo: repo}
}

// TracedCache adds a span to every call of the decorated domain.Cache.
type TracedCache struct {
	repo domain.Cache
}

var _ domain.Cache = (*TracedCache)(nil)

func (repo *TracedCache) Get(ctx context.Context, ip string) (domain.CountryCode, error) {
	ctx, span := startSpan(ctx, "Get", attribute.String("ip", ip))
	defer span.End()

	country, err := repo.repo.Get(ctx, ip)
	span.SetAttributes(attribute.Bool("hit", err == nil))

	if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
		span.SetStatus(codes.Error, err.Error())
	}

	return country, err //nolint:wrapcheck // this is decorator
}

func (repo *TracedCache) Put(ctx context.Context, entry domain.VisitorCountry) error {
	ctx, span := startSpan(ctx, "Put",
		attribute.String("ip", entry.IP),
		attribute.String("country", entry.Country.String()),
	)
	defer span.End()

	return record(span, repo.repo.Put(ctx, entry))
}

func (repo *TracedCache) Clear(ctx context.Context) (int, error) {
	ctx, span := startSpan(ctx, "Clear")
	defer span.End()

	n, err := repo.repo.Clear(ctx)

	return n, record(span, err)
}

func (repo *TracedCache) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := startSpan(ctx, "PurgeExpired", attribute.String("now", now.String()))
	defer span.End()

	n, err := repo.repo.PurgeExpired(ctx, now)

	return n, record(span, err)
}

func (repo *TracedCache) Count(ctx context.Context) (int, error) {
	ctx, span := startSpan(ctx, "Count")
	defer span.End()

	n, err := repo.repo.Count(ctx)

	return n, record(span, err)
}

func startSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return trace.SpanFromContext(ctx).TracerProvider().Tracer(tracerName).
		Start(ctx, "repo", trace.WithAttributes(append(attrs, attribute.String("method", method))...))
}

func record(span trace.Span, err error) error {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
