package infrastructure_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
	"github.com/zettagrid/geocontrol/contexts/geo/internal/infrastructure"
	"github.com/zettagrid/geocontrol/secret"
)

var ctx = context.Background()

func TestIPAPIProvider_Country(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status   int
		body     string
		expected domain.CountryCode
		err      error
	}{
		"resolved":        {http.StatusOK, `{"countryCode":"US"}`, "US", nil},
		"lowercase":       {http.StatusOK, `{"countryCode":"nz"}`, "NZ", nil},
		"missing field":   {http.StatusOK, `{}`, "", domain.ErrUnresolved},
		"empty field":     {http.StatusOK, `{"countryCode":""}`, "", domain.ErrUnresolved},
		"invalid country": {http.StatusOK, `{"countryCode":"XX1"}`, "", domain.ErrUnresolved},
		"invalid json":    {http.StatusOK, `<html>`, "", domain.ErrUnresolved},
		"server error":    {http.StatusInternalServerError, `{"countryCode":"US"}`, "", domain.ErrUnresolved},
		"rate limited":    {http.StatusTooManyRequests, ``, "", domain.ErrUnresolved},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
				assert.Equal(t, "countryCode", r.URL.Query().Get("fields"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := infrastructure.NewIPAPIProvider(infrastructure.WithBaseURL(server.URL))

			country, err := provider.Country(ctx, "8.8.8.8")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.expected, country)
		})
	}
}

func TestIPAPICoProvider_Country(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status   int
		body     string
		expected domain.CountryCode
		err      error
	}{
		"resolved":   {http.StatusOK, "DE", "DE", nil},
		"whitespace": {http.StatusOK, " de\n", "DE", nil},
		"empty body": {http.StatusOK, "", "", domain.ErrUnresolved},
		"error body": {http.StatusOK, "Undefined", "", domain.ErrUnresolved},
		"not found":  {http.StatusNotFound, "DE", "", domain.ErrUnresolved},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/2001:4860:4860::8888/country/", r.URL.Path)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := infrastructure.NewIPAPICoProvider(infrastructure.WithBaseURL(server.URL + "/"))

			country, err := provider.Country(ctx, "2001:4860:4860::8888")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.expected, country)
		})
	}
}

func TestIPInfoProvider_Country(t *testing.T) {
	t.Parallel()

	t.Run("without token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/1.1.1.1/country", r.URL.Path)
			assert.False(t, r.URL.Query().Has("token"))

			_, _ = w.Write([]byte("AU\n"))
		}))
		defer server.Close()

		provider := infrastructure.NewIPInfoProvider(secret.New(""), infrastructure.WithBaseURL(server.URL))

		country, err := provider.Country(ctx, "1.1.1.1")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("AU"), country)
	})

	t.Run("with token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "my-token", r.URL.Query().Get("token"))

			_, _ = w.Write([]byte("GB"))
		}))
		defer server.Close()

		provider := infrastructure.NewIPInfoProvider(secret.New("my-token"), infrastructure.WithBaseURL(server.URL))

		country, err := provider.Country(ctx, "1.1.1.1")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("GB"), country)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer server.Close()

		provider := infrastructure.NewIPInfoProvider(secret.New(""), infrastructure.WithBaseURL(server.URL))

		country, err := provider.Country(ctx, "1.1.1.1")
		assert.ErrorIs(t, err, domain.ErrUnresolved)
		assert.Empty(t, country)
	})
}

func TestHTTPProvider_failures(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}

			_, _ = w.Write([]byte("US"))
		}))
		defer server.Close()

		provider := infrastructure.NewIPAPICoProvider(
			infrastructure.WithBaseURL(server.URL),
			infrastructure.WithHTTPClient(&http.Client{Timeout: 10 * time.Millisecond}),
		)

		country, err := provider.Country(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrUnresolved)
		assert.Empty(t, country)
	})

	t.Run("configured timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(100 * time.Millisecond):
			}

			_, _ = w.Write([]byte("US"))
		}))
		defer server.Close()

		tests := []struct {
			testName string
			timeout  time.Duration
			country  domain.CountryCode
			err      error
		}{
			{"slower than timeout", 10 * time.Millisecond, "", domain.ErrUnresolved},
			{"within timeout", 2 * time.Second, "US", nil},
		}

		for _, tt := range tests {
			t.Run(tt.testName, func(t *testing.T) {
				t.Parallel()

				provider := infrastructure.NewIPAPICoProvider(
					infrastructure.WithBaseURL(server.URL),
					infrastructure.WithTimeout(tt.timeout),
				)

				country, err := provider.Country(ctx, "8.8.8.8")
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, tt.country, country)
			})
		}
	})

	t.Run("timeout above the default", func(t *testing.T) {
		t.Parallel()

		if testing.Short() {
			t.Skip("waits longer than the default provider timeout")
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(domain.DefaultProviderTimeout + 500*time.Millisecond)
			_, _ = w.Write([]byte("US"))
		}))
		defer server.Close()

		provider := infrastructure.NewIPAPICoProvider(
			infrastructure.WithBaseURL(server.URL),
			infrastructure.WithTimeout(2*domain.DefaultProviderTimeout),
		)

		country, err := provider.Country(ctx, "8.8.8.8")
		assert.NoError(t, err)
		assert.Equal(t, domain.CountryCode("US"), country)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("US"))
		}))
		defer server.Close()

		provider := infrastructure.NewIPAPICoProvider(infrastructure.WithBaseURL(server.URL))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := provider.Country(cancelled, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrUnresolved)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		provider := infrastructure.NewIPAPIProvider(infrastructure.WithBaseURL(server.URL))

		_, err := provider.Country(ctx, "8.8.8.8")
		assert.ErrorIs(t, err, domain.ErrUnresolved)
	})
}
