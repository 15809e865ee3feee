package rangeidx

import (
	"fmt"
	"net/netip"
	"strings"
)

// NormalizeAddr parses a textual IP address into its canonical key.
// Any two valid spellings of the same address (leading-zero IPv6
// groups, upper-case hex, IPv4-mapped IPv6) yield an identical
// netip.Addr, whose String form is the canonical external spelling:
// dotted quad for IPv4, RFC 5952 abbreviated form for IPv6.
func NormalizeAddr(s string) (netip.Addr, error) {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("rangeidx: bad address %q: %w", s, err)
	}
	if a.Zone() != "" {
		a = a.WithZone("")
	}
	return a.Unmap(), nil
}
