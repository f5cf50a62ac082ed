package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved is returned by a Provider that could not find the country of an IP.
	// Callers use the default country instead.
	ErrUnresolved = errors.New("unresolved")

	ErrUnknownService = errors.New("unknown geo service")
)

// Provider looks up the country of a public IP address.
// Every failure has to wrap ErrUnresolved.
type Provider interface {
	Country(ctx context.Context, ip string) (CountryCode, error)
}

// Service identifies one of the available Providers.
type Service string

const (
	ServiceIPAPI       Service = "ip-api"
	ServiceIPAPICo     Service = "ipapi"
	ServiceIPInfo      Service = "ipinfo"
	ServiceIP2Location Service = "ip2location"
	ServiceMaxMind     Service = "maxmind"
)

// Services returns all known Services.
func Services() []Service {
	return []Service{ServiceIPAPI, ServiceIPAPICo, ServiceIPInfo, ServiceIP2Location, ServiceMaxMind}
}

func ParseService(service string) (Service, error) {
	s := Service(strings.ToLower(strings.TrimSpace(service)))

	for _, known := range Services() {
		if s == known {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownService, service)
}
