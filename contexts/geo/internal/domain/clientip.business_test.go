package domain_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		remoteAddr   string
		clientIP     string
		forwardedFor string
		trust        domain.HeaderTrust
		expectedIP   string
	}{
		"remote addr": {
			"203.0.113.7:4711", "", "", domain.TrustAllHeaders(), "203.0.113.7",
		},
		"remote addr without port": {
			"203.0.113.7", "", "", domain.TrustAllHeaders(), "203.0.113.7",
		},
		"ipv6 remote addr": {
			"[2001:db8::1]:443", "", "", domain.TrustAllHeaders(), "2001:db8::1",
		},
		"client ip wins": {
			"10.0.0.1:80", "8.8.8.8", "1.1.1.1, 10.0.0.1", domain.TrustAllHeaders(), "8.8.8.8",
		},
		"first forwarded for": {
			"10.0.0.1:80", "", " 1.1.1.1 , 10.0.0.2", domain.TrustAllHeaders(), "1.1.1.1",
		},
		"headers ignored": {
			"10.0.0.1:80", "8.8.8.8", "1.1.1.1", domain.HeaderTrust{Enabled: false}, "10.0.0.1",
		},
		"trusted proxy": {
			"10.0.0.1:80", "", "1.1.1.1", mustTrust(t, "10.0.0.0/8"), "1.1.1.1",
		},
		"untrusted proxy": {
			"192.168.0.1:80", "", "1.1.1.1", mustTrust(t, "10.0.0.0/8"), "192.168.0.1",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr

			if tt.clientIP != "" {
				req.Header.Set(domain.HeaderClientIP, tt.clientIP)
			}

			if tt.forwardedFor != "" {
				req.Header.Set(domain.HeaderXForwardedFor, tt.forwardedFor)
			}

			assert.Equal(t, tt.expectedIP, domain.ClientIP(req, tt.trust))
		})
	}
}

func TestNewHeaderTrust(t *testing.T) {
	t.Parallel()

	_, err := domain.NewHeaderTrust(true, []string{"not-a-cidr"})
	assert.Error(t, err)

	trust, err := domain.NewHeaderTrust(true, []string{" 10.1.2.3/8 "})
	assert.NoError(t, err)
	assert.True(t, trust.Enabled)
	assert.Equal(t, "10.0.0.0/8", trust.Proxies[0].String())
}

func mustTrust(t *testing.T, proxies ...string) domain.HeaderTrust {
	t.Helper()

	trust, err := domain.NewHeaderTrust(true, proxies)
	require.NoError(t, err)

	return trust
}
