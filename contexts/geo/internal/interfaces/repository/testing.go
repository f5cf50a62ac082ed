package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

// TestClock is a manually advanced clock, so expiry can be tested without sleeping.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewTestClock() *TestClock {
	return &TestClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *TestClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// TestCacheSuite is the contract every domain.Cache implementation has to fulfil.
// newCache has to return an empty cache using now for its expiry decisions.
func TestCacheSuite(t *testing.T, newCache func(now func() time.Time) domain.Cache) { //nolint:tparallel // the caller decides on t.Parallel
	t.Helper()

	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()

		cache := newCache(time.Now)

		country, err := cache.Get(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.Empty(t, country)
	})

	t.Run("put and get", func(t *testing.T) {
		t.Parallel()

		clock := NewTestClock()
		cache := newCache(clock.Now)

		err := cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", clock.Now(), time.Hour))
		require.NoError(t, err)

		country, err := cache.Get(ctx, "8.8.8.8")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("US"), country)
	})

	t.Run("put replaces", func(t *testing.T) {
		t.Parallel()

		clock := NewTestClock()
		cache := newCache(clock.Now)

		_ = cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", clock.Now(), time.Hour))
		_ = cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "CA", clock.Now(), time.Hour))

		country, err := cache.Get(ctx, "8.8.8.8")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("CA"), country)

		n, err := cache.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		clock := NewTestClock()
		cache := newCache(clock.Now)

		_ = cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", clock.Now(), time.Hour))

		clock.Add(time.Hour - time.Second)
		_, err := cache.Get(ctx, "8.8.8.8")
		assert.NoError(t, err)

		clock.Add(time.Second)
		_, err = cache.Get(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		clock := NewTestClock()
		cache := newCache(clock.Now)

		_ = cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", clock.Now(), time.Hour))
		_ = cache.Put(ctx, domain.NewVisitorCountry("1.1.1.1", "AU", clock.Now(), -time.Hour))

		n, err := cache.Clear(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = cache.Get(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		n, err = cache.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("purge expired", func(t *testing.T) {
		t.Parallel()

		clock := NewTestClock()
		cache := newCache(clock.Now)

		_ = cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", clock.Now(), time.Hour))
		_ = cache.Put(ctx, domain.NewVisitorCountry("1.1.1.1", "AU", clock.Now(), time.Minute))
		_ = cache.Put(ctx, domain.NewVisitorCountry("9.9.9.9", "CH", clock.Now(), time.Second))

		n, err := cache.PurgeExpired(ctx, clock.Now().Add(time.Minute))
		assert.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = cache.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)

		country, err := cache.Get(ctx, "8.8.8.8")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("US"), country)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		cache := newCache(time.Now)

		wg := sync.WaitGroup{}
		for range 10 {
			wg.Add(2)

			go func() {
				defer wg.Done()

				assert.NoError(t, cache.Put(ctx, domain.NewVisitorCountry("8.8.8.8", "US", time.Now(), time.Hour)))
			}()

			go func() {
				defer wg.Done()

				country, err := cache.Get(ctx, "8.8.8.8")
				if err == nil {
					assert.Equal(t, domain.CountryCode("US"), country)
				}
			}()
		}

		wg.Wait()
	})
}
