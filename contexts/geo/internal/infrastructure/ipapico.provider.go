package infrastructure

import (
	"context"
	"net/url"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

const ipAPICoBaseURL = "https://ipapi.co"

// NewIPAPICoProvider resolves IPs with the plain text country endpoint of ipapi.co.
func NewIPAPICoProvider(opts ...ProviderOpt) *IPAPICoProvider {
	return &IPAPICoProvider{http: newHTTPProvider(ipAPICoBaseURL, opts...)}
}

type IPAPICoProvider struct {
	http httpProvider
}

var _ domain.Provider = (*IPAPICoProvider)(nil)

func (p *IPAPICoProvider) Country(ctx context.Context, ip string) (domain.CountryCode, error) {
	body, err := p.http.get(ctx, "/"+url.PathEscape(ip)+"/country/", nil)
	if err != nil {
		return "", err
	}

	return parseCountry(string(body))
}
