// Package rangeidx implements an in-memory IP range index: a sorted
// interval table mapping IP/CIDR ranges to opaque values, queried by a
// single address after an explicit finalize step.
package rangeidx

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

// Policy selects how overlapping ranges are resolved at lookup time.
// It is fixed when the index is created.
type Policy int

const (
	// SmallestMatch returns the most specific (smallest address span)
	// range containing the key.
	SmallestMatch Policy = iota
	// AllMatches returns every range containing the key; callers
	// post-filter.
	AllMatches
)

type entry[V any] struct {
	lo, hi netip.Addr
	value  V
}

// Index is an IP/CIDR-to-value point-lookup structure. Entries are
// accumulated with Add, then Finalize sorts and compacts them; after
// that the index is immutable and safe for concurrent readers.
type Index[V any] struct {
	policy  Policy
	entries []entry[V]
	// maxHi[i] is the highest upper bound among entries[0..i]; it lets
	// the stabbing walk stop early.
	maxHi     []netip.Addr
	finalized bool
}

// New creates an empty index with the given overlap policy.
func New[V any](policy Policy) *Index[V] {
	return &Index[V]{policy: policy}
}

// Add inserts one range entry. The spec may be a single address
// ("1.2.3.4"), a CIDR block ("1.2.3.0/24") or an explicit range
// ("1.2.3.0-1.2.3.255"). Add must not be called after Finalize.
func (x *Index[V]) Add(spec string, value V) error {
	if x.finalized {
		return fmt.Errorf("rangeidx: add %q after finalize", spec)
	}
	lo, hi, err := ParseRange(spec)
	if err != nil {
		return err
	}
	x.entries = append(x.entries, entry[V]{lo: lo, hi: hi, value: value})
	return nil
}

// Finalize sorts and compacts the entries and makes the index
// query-ready. It must be called exactly once, after all Add calls.
func (x *Index[V]) Finalize() error {
	if x.finalized {
		return fmt.Errorf("rangeidx: finalize called twice")
	}
	sort.SliceStable(x.entries, func(i, j int) bool {
		if c := x.entries[i].lo.Compare(x.entries[j].lo); c != 0 {
			return c < 0
		}
		// Wider range first so nested ranges sit after their parents.
		return x.entries[i].hi.Compare(x.entries[j].hi) > 0
	})
	x.maxHi = make([]netip.Addr, len(x.entries))
	var running netip.Addr
	for i, e := range x.entries {
		if i == 0 || e.hi.Compare(running) > 0 {
			running = e.hi
		}
		x.maxHi[i] = running
	}
	x.finalized = true
	return nil
}

// Len reports the number of loaded entries.
func (x *Index[V]) Len() int { return len(x.entries) }

// Lookup returns the value of the smallest range containing key.
// The index must use the SmallestMatch policy and be finalized.
func (x *Index[V]) Lookup(key netip.Addr) (V, bool) {
	if x.policy != SmallestMatch {
		panic("rangeidx: Lookup on an AllMatches index")
	}
	var best V
	found := false
	var bestLo, bestHi netip.Addr
	x.stab(key, func(e *entry[V]) {
		if !found || spanLess(e.lo, e.hi, bestLo, bestHi) {
			best, bestLo, bestHi = e.value, e.lo, e.hi
			found = true
		}
	})
	return best, found
}

// LookupAll returns the values of every range containing key, widest
// first. The index must use the AllMatches policy and be finalized.
func (x *Index[V]) LookupAll(key netip.Addr) []V {
	if x.policy != AllMatches {
		panic("rangeidx: LookupAll on a SmallestMatch index")
	}
	var out []V
	x.stab(key, func(e *entry[V]) {
		out = append(out, e.value)
	})
	// The walk visits entries in descending lo order; reverse so wider
	// (earlier-starting) ranges come first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Contains reports whether any range contains key, under either policy.
func (x *Index[V]) Contains(key netip.Addr) bool {
	if !x.finalized {
		panic("rangeidx: lookup before finalize")
	}
	hit := false
	x.stab(key, func(*entry[V]) { hit = true })
	return hit
}

// stab visits every entry whose range contains key, in descending lo
// order. Entries are sorted by lo, so every candidate sits at or before
// the insertion point of key; the maxHi fence bounds the walk.
func (x *Index[V]) stab(key netip.Addr, visit func(*entry[V])) {
	if !x.finalized {
		panic("rangeidx: lookup before finalize")
	}
	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].lo.Compare(key) > 0
	})
	for j := i - 1; j >= 0; j-- {
		if x.maxHi[j].Compare(key) < 0 {
			break
		}
		if e := &x.entries[j]; e.hi.Compare(key) >= 0 {
			visit(e)
		}
	}
}

// spanLess reports whether range [aLo,aHi] spans fewer addresses than
// [bLo,bHi]. Both pairs are same-family by construction.
func spanLess(aLo, aHi, bLo, bHi netip.Addr) bool {
	a := sub128(to128(aHi), to128(aLo))
	b := sub128(to128(bHi), to128(bLo))
	if a.hi != b.hi {
		return a.hi < b.hi
	}
	return a.lo < b.lo
}

type uint128 struct{ hi, lo uint64 }

func to128(a netip.Addr) uint128 {
	b := a.As16()
	var u uint128
	for i := 0; i < 8; i++ {
		u.hi = u.hi<<8 | uint64(b[i])
		u.lo = u.lo<<8 | uint64(b[i+8])
	}
	return u
}

func sub128(a, b uint128) uint128 {
	lo := a.lo - b.lo
	hi := a.hi - b.hi
	if a.lo < b.lo {
		hi--
	}
	return uint128{hi: hi, lo: lo}
}

// ParseRange parses a single address, CIDR block or "lo-hi" range into
// its inclusive bounds. IPv4-mapped IPv6 forms are unmapped so both
// textual families normalize to one key space.
func ParseRange(spec string) (lo, hi netip.Addr, err error) {
	spec = strings.TrimSpace(spec)
	switch {
	case strings.Contains(spec, "/"):
		p, perr := netip.ParsePrefix(spec)
		if perr != nil {
			return lo, hi, fmt.Errorf("rangeidx: bad cidr %q: %w", spec, perr)
		}
		p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()).Masked()
		return p.Addr(), lastAddr(p), nil
	case strings.Contains(spec, "-"):
		a, b, _ := strings.Cut(spec, "-")
		lo, err = NormalizeAddr(a)
		if err != nil {
			return lo, hi, err
		}
		hi, err = NormalizeAddr(b)
		if err != nil {
			return lo, hi, err
		}
		if lo.Is4() != hi.Is4() || hi.Compare(lo) < 0 {
			return lo, hi, fmt.Errorf("rangeidx: bad range %q", spec)
		}
		return lo, hi, nil
	default:
		lo, err = NormalizeAddr(spec)
		if err != nil {
			return lo, hi, err
		}
		return lo, lo, nil
	}
}

// lastAddr returns the highest address inside a masked prefix.
func lastAddr(p netip.Prefix) netip.Addr {
	b := p.Addr().As16()
	bits := p.Bits()
	if p.Addr().Is4() {
		bits += 96
	}
	for i := bits; i < 128; i++ {
		b[i/8] |= 1 << (7 - i%8)
	}
	a := netip.AddrFrom16(b)
	if p.Addr().Is4() {
		a = a.Unmap()
	}
	return a
}
