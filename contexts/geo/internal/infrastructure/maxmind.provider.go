package infrastructure

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

// NewMaxMindProvider resolves IPs offline with a MaxMind GeoLite2 or GeoIP2 country or city database.
func NewMaxMindProvider(dbPath string) (*MaxMindProvider, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: no path given", ErrDatabaseNotFound)
	}

	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseNotFound, err)
	}

	return &MaxMindProvider{reader: reader}, nil
}

type MaxMindProvider struct {
	reader *geoip2.Reader
}

var _ domain.Provider = (*MaxMindProvider)(nil)

func (p *MaxMindProvider) Country(ctx context.Context, ip string) (domain.CountryCode, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}

	addr := net.ParseIP(ip)
	if addr == nil {
		return "", fmt.Errorf("%w: invalid ip: %s", domain.ErrUnresolved, ip)
	}

	record, err := p.reader.Country(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}

	return parseCountry(record.Country.IsoCode)
}

func (p *MaxMindProvider) Close() error {
	if err := p.reader.Close(); err != nil {
		return fmt.Errorf("could not close maxmind db: %w", err)
	}

	return nil
}
