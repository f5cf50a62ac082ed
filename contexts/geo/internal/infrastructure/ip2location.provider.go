package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/ip2location/ip2location-go/v9"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

var ErrDatabaseNotFound = errors.New("geo database not found")

// NewIP2LocationProvider resolves IPs offline with an IP2Location BIN database.
//
// This site or product includes IP2Location LITE data available from
// <a href="https://lite.ip2location.com">https://lite.ip2location.com</a>.
func NewIP2LocationProvider(dbPath string) (*IP2LocationProvider, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: no path given", ErrDatabaseNotFound)
	}

	db, err := ip2location.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseNotFound, err)
	}

	return &IP2LocationProvider{db: db}, nil
}

type IP2LocationProvider struct {
	db *ip2location.DB
}

var _ domain.Provider = (*IP2LocationProvider)(nil)

func (p *IP2LocationProvider) Country(ctx context.Context, ip string) (domain.CountryCode, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ip: %v", domain.ErrUnresolved, err)
	}

	record, err := p.db.Get_country_short(addr.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}

	// the database reports misses as "-" or a message, both fail the country check.
	return parseCountry(record.Country_short)
}

func (p *IP2LocationProvider) Close() error {
	p.db.Close()

	return nil
}
