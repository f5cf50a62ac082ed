package domain

import (
	"net/netip"
	"strings"
)

// IsLocalAddress reports whether ip is not a public address, so that no provider could resolve it.
// Addresses that can not be parsed are local, as are loopback, private, link-local,
// documentation, and other reserved ranges.
func IsLocalAddress(ip string) bool {
	ip = strings.TrimSpace(ip)

	if ip == "127.0.0.1" || ip == "::1" {
		return true
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}

	addr = addr.WithZone("")

	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return true
	}

	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// reservedPrefixes are not globally reachable, as listed in the IANA special-purpose address registries.
var reservedPrefixes = []netip.Prefix{ //nolint:gochecknoglobals
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::ffff:0:0/96"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/23"),
	netip.MustParsePrefix("2001:db8::/32"),
}
