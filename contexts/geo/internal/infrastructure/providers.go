package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/secret"
)

// ProvidersConfig holds what the providers need besides the defaults.
// Timeout bounds each web service lookup, 0 leaves it to the caller's context.
type ProvidersConfig struct {
	IPInfoToken   secret.Secret
	IP2LocationDB string
	MaxMindDB     string
	Timeout       time.Duration
	HTTPOpts      []ProviderOpt
}

// NewProviders returns every provider that can be used with conf.
// The web service providers are always available, the offline ones only if their database is configured.
// The returned closer releases the databases.
func NewProviders(conf ProvidersConfig) (map[domain.Service]domain.Provider, io.Closer, error) {
	if conf.Timeout > 0 {
		conf.HTTPOpts = append([]ProviderOpt{WithTimeout(conf.Timeout)}, conf.HTTPOpts...)
	}

	providers := map[domain.Service]domain.Provider{
		domain.ServiceIPAPI:   NewIPAPIProvider(conf.HTTPOpts...),
		domain.ServiceIPAPICo: NewIPAPICoProvider(conf.HTTPOpts...),
		domain.ServiceIPInfo:  NewIPInfoProvider(conf.IPInfoToken, conf.HTTPOpts...),
	}

	closers := closers{}

	if conf.IP2LocationDB != "" {
		p, err := NewIP2LocationProvider(conf.IP2LocationDB)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open ip2location: %w", err)
		}

		providers[domain.ServiceIP2Location] = p
		closers = append(closers, p)
	}

	if conf.MaxMindDB != "" {
		p, err := NewMaxMindProvider(conf.MaxMindDB)
		if err != nil {
			_ = closers.Close()
			return nil, nil, fmt.Errorf("could not open maxmind: %w", err)
		}

		providers[domain.ServiceMaxMind] = p
		closers = append(closers, p)
	}

	return providers, closers, nil
}

type closers []io.Closer

func (c closers) Close() error {
	var errs error

	for _, closer := range c {
		errs = errors.Join(errs, closer.Close())
	}

	return errs
}
