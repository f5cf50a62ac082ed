package application_test

import (
	"context"
	"sync/atomic"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/interfaces/repository"
)

var ctx = context.Background()

const (
	publicIP  = "8.8.8.8"
	privateIP = "192.168.1.10"
)

type stubProvider struct {
	country domain.CountryCode
	err     error
	calls   atomic.Int64
}

func (p *stubProvider) Country(context.Context, string) (domain.CountryCode, error) {
	p.calls.Add(1)

	return p.country, p.err
}

func newResolver(provider domain.Provider) (*domain.Resolver, *repository.MemoryCache) {
	cache := repository.NewMemoryCache()

	return domain.NewResolver(
		domain.DefaultConfig(),
		cache,
		map[domain.Service]domain.Provider{domain.ServiceIPAPI: provider, domain.ServiceIPInfo: provider},
	), cache
}
