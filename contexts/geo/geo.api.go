// Package geo is the intraprocess API of what this Context is exposing to other Contexts to use.
//
// It decides whether a geo targeted content element is shown to a visitor,
// based on the country the visitor's IP address resolves to.
package geo

import (
	"context"
	"net/http"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

const ContextName = "geo"

// API is the api of the geo Context.
// Its methods never fail on lookup problems, they fall back to the default country instead.
type API interface {
	// VisitorCountry returns the country of the visitor sending r.
	VisitorCountry(ctx context.Context, r *http.Request) CountryCode
	// Country returns the country of ip.
	Country(ctx context.Context, ip string) CountryCode
	// Visible decides whether an element with attrs is shown to a visitor from country.
	Visible(attrs Attributes, country CountryCode) bool
	// Filter returns output if the element is visible to the visitor sending r, otherwise "".
	// The visitor's country is only resolved if attrs are targeted.
	Filter(ctx context.Context, r *http.Request, attrs Attributes, output string) string
	// ClearCache removes every cached resolution and returns how many there were.
	ClearCache(ctx context.Context) (int, error)
}

type (
	CountryCode = domain.CountryCode
	Mode        = domain.Mode
	Attributes  = domain.Attributes
	Service     = domain.Service
)

const (
	ModeDefault  = domain.ModeDefault
	ModeShowOnly = domain.ModeShowOnly
	ModeHideOnly = domain.ModeHideOnly

	ServiceIPAPI       = domain.ServiceIPAPI
	ServiceIPAPICo     = domain.ServiceIPAPICo
	ServiceIPInfo      = domain.ServiceIPInfo
	ServiceIP2Location = domain.ServiceIP2Location
	ServiceMaxMind     = domain.ServiceMaxMind

	DefaultCountry = domain.DefaultCountry
)

var (
	ErrInvalidCountry        = domain.ErrInvalidCountry
	ErrUnknownService        = domain.ErrUnknownService
	// ErrProviderNotConfigured is returned for a service whose provider is unavailable,
	// e.g. ip2location without ip2location_db.
	ErrProviderNotConfigured = domain.ErrProviderNotConfigured

	// SettingService and SettingDefaultCountry can be changed at run time via setting.Settings.
	SettingService        = application.SettingService
	SettingDefaultCountry = application.SettingDefaultCountry
)

// ParseAttributes parses the raw geo fields of a content element:
// comma separated country lists for show and hide, and the mode.
func ParseAttributes(show string, hide string, mode string) Attributes {
	return domain.ParseAttributes(show, hide, mode)
}

func ParseMode(mode string) Mode {
	return domain.ParseMode(mode)
}

func ParseCountryList(list string) []CountryCode {
	return domain.ParseCountryList(list)
}

func ParseCountry(code string) (CountryCode, error) {
	return domain.ParseCountry(code) //nolint:wrapcheck // export the underlying error
}

func ParseService(service string) (Service, error) {
	return domain.ParseService(service) //nolint:wrapcheck // export the underlying error
}

// Evaluate decides whether an element with attrs is shown to a visitor from country.
// It is pure and does not need an API.
func Evaluate(attrs Attributes, country CountryCode) bool {
	return domain.Evaluate(attrs, country)
}
