package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/interfaces/repository"
)

func TestTracedCache(t *testing.T) {
	t.Parallel()

	repository.TestCacheSuite(t, func(now func() time.Time) domain.Cache {
		return repository.NewTracedCache(repository.NewMemoryCache(repository.WithMemoryClock(now)))
	})

	t.Run("records spans", func(t *testing.T) {
		t.Parallel()

		recorder := tracetest.NewSpanRecorder()
		tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

		ctx, span := tracer.Start(context.Background(), "test")
		cache := repository.NewTracedCache(repository.NewMemoryCache())

		_, err := cache.Get(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		span.End()

		spans := recorder.Ended()
		assert.Len(t, spans, 2)
		assert.Equal(t, "repo", spans[0].Name())
		assert.Contains(t, spans[0].Attributes(), attribute.String("method", "Get"))
	})
}
