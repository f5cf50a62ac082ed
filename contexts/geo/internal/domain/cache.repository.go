package domain

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned if the cache has no valid entry for an IP.
var ErrCacheMiss = errors.New("cache miss")

// Cache keeps the country of each resolved visitor IP until it expires.
// Entries that fell back to the default country are cached the same way.
type Cache interface {
	// Get returns the country of ip, or ErrCacheMiss if there is none or it expired.
	Get(ctx context.Context, ip string) (CountryCode, error)
	// Put replaces any entry of the same IP.
	Put(ctx context.Context, entry VisitorCountry) error
	// Clear removes all entries, regardless of their expiry, and returns how many there were.
	Clear(ctx context.Context) (int, error)
	// PurgeExpired removes the entries expired at now.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	// Count returns the number of stored entries, including expired ones not purged yet.
	Count(ctx context.Context) (int, error)
}

// VisitorCountry is the cached result for one IP.
// It is never changed, but replaced as a whole.
type VisitorCountry struct {
	IP        string
	Country   CountryCode
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewVisitorCountry(ip string, country CountryCode, createdAt time.Time, ttl time.Duration) VisitorCountry {
	return VisitorCountry{
		IP:        ip,
		Country:   country,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
	}
}

// Expired reports whether the entry is not valid at now anymore.
func (v VisitorCountry) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
