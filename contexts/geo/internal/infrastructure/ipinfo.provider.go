package infrastructure

import (
	"context"
	"net/url"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/secret"
)

const ipInfoBaseURL = "https://ipinfo.io"

// NewIPInfoProvider resolves IPs with the plain text country endpoint of ipinfo.io.
// The token is optional, without it the free rate limit applies.
func NewIPInfoProvider(token secret.Secret, opts ...ProviderOpt) *IPInfoProvider {
	return &IPInfoProvider{
		http:  newHTTPProvider(ipInfoBaseURL, opts...),
		token: token,
	}
}

type IPInfoProvider struct {
	http  httpProvider
	token secret.Secret
}

var _ domain.Provider = (*IPInfoProvider)(nil)

func (p *IPInfoProvider) Country(ctx context.Context, ip string) (domain.CountryCode, error) {
	var query url.Values
	if p.token.IsSet() {
		query = url.Values{"token": []string{p.token.Secret()}}
	}

	body, err := p.http.get(ctx, "/"+url.PathEscape(ip)+"/country", query)
	if err != nil {
		return "", err
	}

	return parseCountry(string(body))
}
