package domain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Source tells how a Resolution was found.
type Source string

const (
	SourceCache    Source = "cache"
	SourceLocal    Source = "local"
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

var ErrProviderNotConfigured = errors.New("provider not configured")

// Resolution is the country of one visitor IP.
type Resolution struct {
	IP      string
	Country CountryCode
	Source  Source
	// Err holds what went wrong on the way, e.g. a failed provider or cache.
	// The Country is valid regardless.
	Err error
}

// NewResolver returns a Resolver. conf has to be valid, see Config.Validate.
func NewResolver(conf Config, cache Cache, providers map[Service]Provider, opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		cache:     cache,
		providers: providers,
		now:       time.Now,
	}

	r.config.Store(&conf)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type ResolverOpt func(r *Resolver)

// WithClock replaces time.Now, e.g. to let cache entries expire in tests.
func WithClock(now func() time.Time) ResolverOpt {
	return func(r *Resolver) {
		r.now = now
	}
}

// Resolver finds the country of visitor IPs.
// It is safe for concurrent use.
type Resolver struct {
	config    atomic.Pointer[Config]
	cache     Cache
	providers map[Service]Provider
	now       func() time.Time
}

func (r *Resolver) Config() Config {
	return *r.config.Load()
}

// Services returns the Services this Resolver has a Provider for, in the order of domain.Services.
func (r *Resolver) Services() []Service {
	available := make([]Service, 0, len(r.providers))

	for _, s := range Services() {
		if _, ok := r.providers[s]; ok {
			available = append(available, s)
		}
	}

	return available
}

// CanUse returns an error wrapping ErrProviderNotConfigured if there is no Provider for service,
// e.g. an offline database that was never configured.
func (r *Resolver) CanUse(service Service) error {
	return EnsureProvider(r.providers, service)
}

// EnsureProvider returns an error wrapping ErrProviderNotConfigured if providers has no entry for service.
func EnsureProvider(providers map[Service]Provider, service Service) error {
	if _, ok := providers[service]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotConfigured, service)
	}

	return nil
}

// UpdateConfig replaces the configuration for all following resolutions.
// Cached entries stay valid until they expire or the cache is cleared.
func (r *Resolver) UpdateConfig(conf Config) error {
	conf, err := conf.Validate()
	if err != nil {
		return err
	}

	if err := r.CanUse(conf.Service); err != nil {
		return err
	}

	r.config.Store(&conf)

	return nil
}

// Resolve returns the country of ip.
//
// A cached entry is returned as is. Otherwise, local addresses resolve to the default country,
// public ones are looked up by the configured provider, falling back to the default country.
// Every result that was not cached before is cached.
func (r *Resolver) Resolve(ctx context.Context, ip string) Resolution {
	conf := r.Config()

	country, err := r.cache.Get(ctx, ip)
	if err == nil {
		return Resolution{IP: ip, Country: country, Source: SourceCache, Err: nil}
	}

	var errs error
	if !errors.Is(err, ErrCacheMiss) {
		errs = fmt.Errorf("could not read cache: %w", err)
	}

	res := Resolution{IP: ip, Country: conf.DefaultCountry, Source: SourceLocal, Err: nil}

	if !IsLocalAddress(ip) {
		country, err := r.lookup(ctx, conf, ip)
		if err != nil {
			res.Source = SourceFallback
			errs = errors.Join(errs, err)
		} else {
			res.Country = country
			res.Source = SourceProvider
		}
	}

	err = r.cache.Put(ctx, NewVisitorCountry(ip, res.Country, r.now(), conf.CacheDuration))
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("could not write cache: %w", err))
	}

	res.Err = errs

	return res
}

// lookup calls the configured provider exactly once.
// Only the provider timeout cancels the call, not the caller's ctx.
func (r *Resolver) lookup(ctx context.Context, conf Config, ip string) (CountryCode, error) {
	provider, ok := r.providers[conf.Service]
	if !ok || provider == nil {
		return "", fmt.Errorf("%w: %w: %s", ErrUnresolved, ErrProviderNotConfigured, conf.Service)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), conf.ProviderTimeout)
	defer cancel()

	country, err := provider.Country(ctx, ip)
	if err != nil {
		return "", fmt.Errorf("%s: %w", conf.Service, err)
	}

	return country, nil
}

// ClearCache removes all cached resolutions.
func (r *Resolver) ClearCache(ctx context.Context) (int, error) {
	n, err := r.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not clear cache: %w", err)
	}

	return n, nil
}

// PurgeExpired removes expired resolutions from the cache.
func (r *Resolver) PurgeExpired(ctx context.Context) (int, error) {
	n, err := r.cache.PurgeExpired(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("could not purge cache: %w", err)
	}

	return n, nil
}
