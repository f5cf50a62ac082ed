package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

// maxBodySize limits what is read from a provider, country responses are tiny.
const maxBodySize = 4 << 10

type ProviderOpt func(p *httpProvider)

// WithBaseURL replaces the provider's public endpoint, e.g. with a test server.
func WithBaseURL(baseURL string) ProviderOpt {
	return func(p *httpProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds every lookup to d. Without it, only the caller's context bounds a lookup.
func WithTimeout(d time.Duration) ProviderOpt {
	return func(p *httpProvider) {
		p.timeout = d
	}
}

// WithHTTPClient replaces the client used for the lookups.
func WithHTTPClient(client *http.Client) ProviderOpt {
	return func(p *httpProvider) {
		p.client = client
	}
}

// httpProvider is the shared transport of all web service providers:
// a single GET request with a timeout and no retries.
type httpProvider struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

func newHTTPProvider(defaultBaseURL string, opts ...ProviderOpt) httpProvider {
	p := httpProvider{
		client:  &http.Client{}, //nolint:exhaustruct // deadlines come from the request context
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// get returns the body of a successful response to baseURL+path.
// Every failure is unresolved.
func (p httpProvider) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: could not build request: %v", domain.ErrUnresolved, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status: %s", domain.ErrUnresolved, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read body: %v", domain.ErrUnresolved, err)
	}

	return body, nil
}

// parseCountry accepts only valid country codes as a resolution.
func parseCountry(code string) (domain.CountryCode, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: empty country", domain.ErrUnresolved)
	}

	country, err := domain.ParseCountry(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnresolved, err)
	}

	return country, nil
}
