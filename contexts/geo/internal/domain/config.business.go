package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultService         = ServiceIPAPI
	DefaultCountry         = CountryCode("AU")
	DefaultCacheDuration   = 24 * time.Hour
	DefaultProviderTimeout = 5 * time.Second
)

var ErrInvalidConfig = errors.New("invalid geo config")

// Config is the configuration a Resolver works with.
// It is replaced as a whole on every change.
type Config struct {
	Service         Service
	DefaultCountry  CountryCode
	CacheDuration   time.Duration
	ProviderTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Service:         DefaultService,
		DefaultCountry:  DefaultCountry,
		CacheDuration:   DefaultCacheDuration,
		ProviderTimeout: DefaultProviderTimeout,
	}
}

// Validate returns the canonical form of c.
func (c Config) Validate() (Config, error) {
	service, err := ParseService(string(c.Service))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	country, err := ParseCountry(string(c.DefaultCountry))
	if err != nil {
		return Config{}, fmt.Errorf("%w: default country: %w", ErrInvalidConfig, err)
	}

	if c.CacheDuration <= 0 {
		return Config{}, fmt.Errorf("%w: cache duration has to be positive", ErrInvalidConfig)
	}

	if c.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: provider timeout has to be positive", ErrInvalidConfig)
	}

	c.Service = service
	c.DefaultCountry = country

	return c, nil
}
