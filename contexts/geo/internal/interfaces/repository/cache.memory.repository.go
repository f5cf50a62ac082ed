package repository

import (
	"context"
	"sync"
	"time"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

type MemoryCacheOpt func(repo *MemoryCache)

// WithMemoryClock replaces time.Now for deciding on expiry.
func WithMemoryClock(now func() time.Time) MemoryCacheOpt {
	return func(repo *MemoryCache) {
		repo.now = now
	}
}

// NewMemoryCache returns a process local domain.Cache.
// It is lost on restart and not shared between instances.
func NewMemoryCache(opts ...MemoryCacheOpt) *MemoryCache {
	repo := &MemoryCache{
		mu:      sync.RWMutex{},
		entries: map[string]domain.VisitorCountry{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]domain.VisitorCountry
	now     func() time.Time
}

var _ domain.Cache = (*MemoryCache)(nil)

func (repo *MemoryCache) Get(_ context.Context, ip string) (domain.CountryCode, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	entry, ok := repo.entries[ip]
	if !ok || entry.Expired(repo.now()) {
		return "", domain.ErrCacheMiss
	}

	return entry.Country, nil
}

func (repo *MemoryCache) Put(_ context.Context, entry domain.VisitorCountry) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.entries[entry.IP] = entry

	return nil
}

func (repo *MemoryCache) Clear(_ context.Context) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	n := len(repo.entries)
	repo.entries = map[string]domain.VisitorCountry{}

	return n, nil
}

func (repo *MemoryCache) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	n := 0

	for ip, entry := range repo.entries {
		if entry.Expired(now) {
			delete(repo.entries, ip)
			n++
		}
	}

	return n, nil
}

func (repo *MemoryCache) Count(_ context.Context) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return len(repo.entries), nil
}
