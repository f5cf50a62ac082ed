package domain

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const (
	HeaderClientIP      = "Client-Ip"
	HeaderXForwardedFor = "X-Forwarded-For"
)

// HeaderTrust decides whether the IP headers a client sends are used.
type HeaderTrust struct {
	// Enabled uses the headers at all.
	Enabled bool

	// Proxies, if not empty, limit the use of the headers to
	// connections coming from one of these networks.
	Proxies []netip.Prefix
}

// TrustAllHeaders honours the IP headers of every client.
func TrustAllHeaders() HeaderTrust {
	return HeaderTrust{Enabled: true, Proxies: nil}
}

// NewHeaderTrust parses the CIDRs of trusted proxies.
func NewHeaderTrust(enabled bool, trustedProxies []string) (HeaderTrust, error) {
	trust := HeaderTrust{Enabled: enabled, Proxies: make([]netip.Prefix, 0, len(trustedProxies))}

	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return HeaderTrust{}, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}

		trust.Proxies = append(trust.Proxies, prefix.Masked())
	}

	return trust, nil
}

func (t HeaderTrust) trusts(remoteIP string) bool {
	if !t.Enabled {
		return false
	}

	if len(t.Proxies) == 0 {
		return true
	}

	addr, err := netip.ParseAddr(remoteIP)
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	for _, p := range t.Proxies {
		if p.Contains(addr) {
			return true
		}
	}

	return false
}

// ClientIP returns the IP address of the visitor sending r.
// The Client-IP header has priority over X-Forwarded-For, which has priority
// over the connection's address. The first non-empty value wins.
func ClientIP(r *http.Request, trust HeaderTrust) string {
	remoteIP := remoteAddrIP(r.RemoteAddr)

	if trust.trusts(remoteIP) {
		if ip := strings.TrimSpace(r.Header.Get(HeaderClientIP)); ip != "" {
			return ip
		}

		if ip := firstForwardedFor(r.Header.Get(HeaderXForwardedFor)); ip != "" {
			return ip
		}
	}

	return remoteIP
}

// firstForwardedFor returns the originating client of a proxy chain "client, proxy1, proxy2".
func firstForwardedFor(header string) string {
	first, _, _ := strings.Cut(header, ",")

	return strings.TrimSpace(first)
}

func remoteAddrIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}

	return host
}
