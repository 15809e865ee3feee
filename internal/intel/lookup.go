package intel

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/TomasB/ipintel/internal/rangeidx"
)

// Options controls a single lookup: which categories to consult and
// whether to attach the per-category timing breakdown.
type Options struct {
	Mask        Category
	MeasurePerf bool
}

type queryKind int

const (
	queryInvalid queryKind = iota
	queryIP
	queryASN
)

// classifyQuery decides whether a query names an IP, an ASN, or
// nothing valid. ASN queries are accepted as "AS15169" (any case) or
// as a bare number.
func classifyQuery(q string) (queryKind, netip.Addr, uint32) {
	q = strings.TrimSpace(q)
	if q == "" {
		return queryInvalid, netip.Addr{}, 0
	}
	digits := q
	if len(q) > 2 && (q[0] == 'a' || q[0] == 'A') && (q[1] == 's' || q[1] == 'S') {
		digits = q[2:]
	}
	if n, err := strconv.ParseUint(digits, 10, 32); err == nil {
		return queryASN, netip.Addr{}, uint32(n)
	}
	if addr, err := rangeidx.NormalizeAddr(q); err == nil {
		return queryIP, addr, 0
	}
	return queryInvalid, netip.Addr{}, 0
}

// Lookup composes the intelligence record for one IP or ASN query.
func (o *Orchestrator) Lookup(query string, opts Options) (*Record, error) {
	snap, terr := o.current()
	if terr != nil {
		return nil, terr
	}
	started := time.Now()

	kind, key, asn := classifyQuery(query)
	switch kind {
	case queryInvalid:
		return nil, errf(CodeInvalidIPOrASN, "%q is neither a valid IP address nor an ASN", query)
	case queryASN:
		return o.lookupASN(snap, asn, started)
	}

	rec := &Record{IP: key.String()}

	// Reserved ranges answer immediately; no category index is
	// consulted for them.
	if o.isBogon(key) {
		rec.IsBogon = true
		rec.ElapsedMS = elapsedMS(started)
		return rec, nil
	}

	var perf map[string]float64
	if opts.MeasurePerf {
		perf = make(map[string]float64, 8)
	}

	// ASN before company: the company lookup uses the ASN result to
	// disambiguate ownership.
	var asnDetail *ASNDetail
	if opts.Mask.Has(CategoryASN) {
		timed(perf, "asn", func() {
			if d, ok := snap.asn.Lookup(key); ok {
				asnDetail = &d
				rec.ASN = asnDetail
			}
		})
	}
	if opts.Mask.Has(CategoryCompany) {
		timed(perf, "company", func() {
			o.lookupCompany(snap, key, asnDetail, rec)
		})
	}
	if opts.Mask.Has(CategoryLocation) {
		timed(perf, "location", func() {
			if loc, ok := o.resolveLocation(snap, key); ok {
				rec.Location = loc
			}
		})
	}
	if opts.Mask.Has(CategoryDatacenter) {
		timed(perf, "datacenter", func() {
			if d, ok := snap.datacenter.Lookup(key); ok {
				rec.IsDatacenter = true
				rec.Datacenter = &d
			}
		})
	}
	timed(perf, "flags", func() {
		_, rec.IsMobile = snap.mobile.Lookup(key)
		_, rec.IsSatellite = snap.satellite.Lookup(key)
		_, rec.IsCrawler = snap.crawler.Lookup(key)
	})
	if opts.Mask.Has(CategoryBlacklist) {
		timed(perf, "blacklist", func() {
			if bl, ok := snap.blacklist.Lookup(key); ok {
				applyBlacklist(rec, bl)
			}
		})
	}
	timed(perf, "custom", func() {
		for _, flag := range snap.custom.LookupAll(key) {
			setFlag(rec, flag)
		}
	})
	// Clean override runs last and beats everything, including the
	// custom lists.
	timed(perf, "clean", func() {
		if _, clean := snap.clean.Lookup(key); clean {
			applyCleanOverride(rec)
		}
	})

	rec.Perf = perf
	rec.ElapsedMS = elapsedMS(started)
	return rec, nil
}

func (o *Orchestrator) lookupASN(snap *snapshot, asn uint32, started time.Time) (*Record, error) {
	if !o.cfg.ASNLookup {
		return nil, errf(CodeASNLookupDisabled, "ASN lookups are disabled")
	}
	rec := &Record{IP: "AS" + strconv.FormatUint(uint64(asn), 10)}
	if d, ok := snap.asnByNumber[asn]; ok {
		rec.ASN = &d
	}
	rec.ElapsedMS = elapsedMS(started)
	return rec, nil
}

// lookupCompany resolves ownership and hoists the registry and abuse
// contact fields out of the nested detail.
func (o *Orchestrator) lookupCompany(snap *snapshot, key netip.Addr, asnDetail *ASNDetail, rec *Record) {
	d, ok := snap.company.Lookup(key)
	if !ok {
		return
	}
	if asnDetail != nil && d.ASN != 0 && d.ASN != asnDetail.ASN {
		// The range is announced by a different AS than the company
		// record claims; trust routing and drop the stale ownership.
		return
	}
	if d.RIR != "" {
		rec.RIR = strings.ToUpper(d.RIR)
		d.RIR = ""
	}
	if d.Abuse != nil {
		rec.Abuse = d.Abuse
		d.Abuse = nil
	}
	rec.Company = &d
}

// resolveLocation consults the primary location index and, when a
// secondary coordinate source is configured, attaches its coordinates
// as the alternate pair.
func (o *Orchestrator) resolveLocation(snap *snapshot, key netip.Addr) (*LocationDetail, bool) {
	loc, ok := snap.location.Lookup(key)
	if !ok {
		return nil, false
	}
	if o.geo != nil {
		if lat, lon, ok := o.geo.Coordinates(key); ok {
			loc.Latitude2, loc.Longitude2 = &lat, &lon
		}
	}
	return &loc, true
}

// applyBlacklist merges one blacklist entry into the record. A
// structured vpn detail promotes the vpn flag and is stored; plain
// boolean sub-flags copy as-is.
func applyBlacklist(rec *Record, bl BlacklistDetail) {
	rec.IsTor = rec.IsTor || bl.Tor
	rec.IsProxy = rec.IsProxy || bl.Proxy
	rec.IsAbuser = rec.IsAbuser || bl.Abuser
	if bl.VPNDetail != nil {
		rec.IsVPN = true
		rec.VPN = bl.VPNDetail
	} else if bl.VPN {
		rec.IsVPN = true
	}
}

func setFlag(rec *Record, name string) {
	switch name {
	case "is_abuser":
		rec.IsAbuser = true
	case "is_tor":
		rec.IsTor = true
	case "is_vpn":
		rec.IsVPN = true
	case "is_proxy":
		rec.IsProxy = true
	case "is_datacenter":
		rec.IsDatacenter = true
	}
}

// applyCleanOverride forcibly resets every classification flag and
// discards the details they carried.
func applyCleanOverride(rec *Record) {
	rec.IsDatacenter = false
	rec.IsCrawler = false
	rec.IsTor = false
	rec.IsProxy = false
	rec.IsVPN = false
	rec.IsAbuser = false
	rec.Datacenter = nil
	rec.VPN = nil
}

func timed(perf map[string]float64, name string, fn func()) {
	if perf == nil {
		fn()
		return
	}
	started := time.Now()
	fn()
	perf[name] = elapsedMS(started)
}

func elapsedMS(started time.Time) float64 {
	return float64(time.Since(started).Nanoseconds()) / 1e6
}
