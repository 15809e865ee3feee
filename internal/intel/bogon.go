package intel

import (
	"net/netip"

	"github.com/TomasB/ipintel/internal/rangeidx"
)

// Reserved and special-use prefixes (RFC 6890 and friends). An address
// inside any of these short-circuits the whole category pipeline.
var bogonPrefixes = []string{
	// IPv4
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"255.255.255.255/32",
	// IPv6
	"::/128",
	"::1/128",
	"64:ff9b::/96",
	"100::/64",
	"2001::/32",
	"2001:db8::/32",
	"2002::/16",
	"fc00::/7",
	"fe80::/10",
	"fec0::/10",
	"ff00::/8",
}

func newBogonIndex() *rangeidx.Index[struct{}] {
	idx := rangeidx.New[struct{}](rangeidx.SmallestMatch)
	for _, p := range bogonPrefixes {
		if err := idx.Add(p, struct{}{}); err != nil {
			panic("intel: bad builtin bogon prefix " + p)
		}
	}
	if err := idx.Finalize(); err != nil {
		panic("intel: bogon index finalize: " + err.Error())
	}
	return idx
}

func (o *Orchestrator) isBogon(key netip.Addr) bool {
	return o.bogons.Contains(key)
}
