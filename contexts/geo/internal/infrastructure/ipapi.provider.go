package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

const ipAPIBaseURL = "http://ip-api.com"

// NewIPAPIProvider resolves IPs with the JSON API of ip-api.com.
func NewIPAPIProvider(opts ...ProviderOpt) *IPAPIProvider {
	return &IPAPIProvider{http: newHTTPProvider(ipAPIBaseURL, opts...)}
}

type IPAPIProvider struct {
	http httpProvider
}

var _ domain.Provider = (*IPAPIProvider)(nil)

func (p *IPAPIProvider) Country(ctx context.Context, ip string) (domain.CountryCode, error) {
	body, err := p.http.get(ctx, "/json/"+url.PathEscape(ip), url.Values{"fields": []string{"countryCode"}})
	if err != nil {
		return "", err
	}

	var resp struct {
		CountryCode string `json:"countryCode"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: invalid json: %v", domain.ErrUnresolved, err)
	}

	return parseCountry(resp.CountryCode)
}
