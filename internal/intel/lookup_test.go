package intel

import (
	"context"
	"reflect"
	"testing"
)

func TestLookup_ComposedRecord(t *testing.T) {
	o := newTestOrchestrator(t)

	rec, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if rec.IP != "8.8.8.8" {
		t.Errorf("ip = %q, want 8.8.8.8", rec.IP)
	}
	if rec.IsBogon {
		t.Error("public address flagged as bogon")
	}
	if rec.ASN == nil || rec.ASN.ASN != 15169 {
		t.Fatalf("asn detail = %+v, want AS15169", rec.ASN)
	}
	if rec.Company == nil || rec.Company.Name != "Google LLC" {
		t.Fatalf("company detail = %+v, want Google LLC", rec.Company)
	}
	if rec.Location == nil || rec.Location.City != "Mountain View" {
		t.Fatalf("location detail = %+v, want Mountain View", rec.Location)
	}
	if !rec.IsDatacenter || rec.Datacenter == nil || rec.Datacenter.Datacenter != "Google Cloud" {
		t.Errorf("datacenter = %v/%+v, want Google Cloud match", rec.IsDatacenter, rec.Datacenter)
	}
	if !rec.IsCrawler {
		t.Error("expected crawler flag for 8.8.8.8")
	}
	if rec.IsMobile || rec.IsSatellite || rec.IsTor || rec.IsProxy || rec.IsVPN || rec.IsAbuser {
		t.Errorf("unexpected flags set: %+v", rec)
	}
}

func TestLookup_FieldShaping(t *testing.T) {
	o := newTestOrchestrator(t)

	rec, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Registry hoisted to the top level, upper-cased, removed from the
	// nested detail.
	if rec.RIR != "ARIN" {
		t.Errorf("rir = %q, want ARIN", rec.RIR)
	}
	if rec.Company.RIR != "" {
		t.Errorf("nested company rir must be cleared, got %q", rec.Company.RIR)
	}
	// Abuse contact hoisted likewise.
	if rec.Abuse == nil || rec.Abuse.Email != "network-abuse@google.com" {
		t.Errorf("abuse = %+v, want hoisted contact", rec.Abuse)
	}
	if rec.Company.Abuse != nil {
		t.Error("nested company abuse must be cleared")
	}
}

func TestLookup_CompanyMaskGatesCompanyFields(t *testing.T) {
	o := newTestOrchestrator(t)

	rec, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll &^ CategoryCompany})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Company != nil || rec.RIR != "" || rec.Abuse != nil {
		t.Errorf("company fields populated with company bit cleared: company=%+v rir=%q abuse=%+v",
			rec.Company, rec.RIR, rec.Abuse)
	}
	// Other categories unaffected.
	if rec.ASN == nil || rec.Location == nil {
		t.Error("asn/location must still resolve with company bit cleared")
	}
}

func TestLookup_ASNDisambiguatesOwnership(t *testing.T) {
	o := newTestOrchestrator(t)

	// 9.9.9.0/24 is announced by AS111 but its company record claims
	// AS999; with both lookups enabled the stale ownership is dropped.
	rec, err := o.Lookup("9.9.9.9", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Company != nil {
		t.Errorf("mismatched company record must be dropped, got %+v", rec.Company)
	}

	// Without the ASN input there is nothing to disambiguate against.
	rec, err = o.Lookup("9.9.9.9", Options{Mask: CategoryAll &^ CategoryASN})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Company == nil || rec.Company.Name != "Stale Owner" {
		t.Errorf("company = %+v, want Stale Owner without ASN lookup", rec.Company)
	}
}

func TestLookup_BogonShortCircuit(t *testing.T) {
	o := newTestOrchestrator(t)

	bogons := []string{"10.1.2.3", "127.0.0.1", "192.168.1.1", "100.64.0.9", "::1", "fe80::1", "fc00::42"}
	for _, ip := range bogons {
		for mask := Category(0); mask <= CategoryAll; mask++ {
			rec, err := o.Lookup(ip, Options{Mask: mask})
			if err != nil {
				t.Fatalf("lookup %s mask %d: %v", ip, mask, err)
			}
			if !rec.IsBogon {
				t.Fatalf("%s mask %d: expected is_bogon", ip, mask)
			}
			if rec.ASN != nil || rec.Company != nil || rec.Location != nil ||
				rec.Datacenter != nil || rec.VPN != nil || rec.Abuse != nil ||
				rec.RIR != "" || rec.IsDatacenter || rec.IsTor || rec.IsProxy ||
				rec.IsVPN || rec.IsAbuser || rec.IsMobile || rec.IsSatellite || rec.IsCrawler {
				t.Fatalf("%s mask %d: bogon record carries category data: %+v", ip, mask, rec)
			}
		}
	}
}

func TestLookup_BlacklistMerge(t *testing.T) {
	o := newTestOrchestrator(t)

	tests := []struct {
		name string
		ip   string
		want func(t *testing.T, rec *Record)
	}{
		{
			name: "boolean sub-flags copy as-is",
			ip:   "6.6.6.1",
			want: func(t *testing.T, rec *Record) {
				if !rec.IsTor || !rec.IsProxy || !rec.IsAbuser {
					t.Errorf("flags = tor:%v proxy:%v abuser:%v, want all true",
						rec.IsTor, rec.IsProxy, rec.IsAbuser)
				}
				if rec.IsVPN || rec.VPN != nil {
					t.Error("vpn must stay unset")
				}
			},
		},
		{
			name: "structured vpn detail promotes flag",
			ip:   "7.7.7.7",
			want: func(t *testing.T, rec *Record) {
				if !rec.IsVPN {
					t.Error("expected is_vpn from structured detail")
				}
				if rec.VPN == nil || rec.VPN.Service != "NordVPN" {
					t.Errorf("vpn detail = %+v, want NordVPN", rec.VPN)
				}
			},
		},
		{
			name: "plain vpn boolean sets flag only",
			ip:   "2.2.2.2",
			want: func(t *testing.T, rec *Record) {
				if !rec.IsVPN {
					t.Error("expected is_vpn")
				}
				if rec.VPN != nil {
					t.Errorf("plain boolean must not attach detail, got %+v", rec.VPN)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := o.Lookup(tt.ip, Options{Mask: CategoryAll})
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			tt.want(t, rec)
		})
	}
}

func TestLookup_CleanOverrideWinsAlways(t *testing.T) {
	o := newTestOrchestrator(t)

	// 6.6.6.6 is inside the blacklisted 6.6.6.0/24 but listed clean.
	rec, err := o.Lookup("6.6.6.6", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.IsDatacenter || rec.IsCrawler || rec.IsTor || rec.IsProxy || rec.IsVPN || rec.IsAbuser {
		t.Errorf("clean override must reset every classification flag, got %+v", rec)
	}
	if rec.Datacenter != nil || rec.VPN != nil {
		t.Error("clean override must discard classification details")
	}

	// Its blacklisted neighbour keeps the flags.
	neighbour, err := o.Lookup("6.6.6.1", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !neighbour.IsTor {
		t.Error("non-clean neighbour must keep blacklist flags")
	}
}

func TestLookup_ASNQuery(t *testing.T) {
	o := newTestOrchestrator(t)

	for _, q := range []string{"AS15169", "as15169", "15169"} {
		rec, err := o.Lookup(q, Options{Mask: CategoryAll})
		if err != nil {
			t.Fatalf("lookup %q: %v", q, err)
		}
		if rec.ASN == nil || rec.ASN.Org != "Google LLC" {
			t.Errorf("lookup %q: asn = %+v, want Google LLC", q, rec.ASN)
		}
	}
}

func TestLookup_ASNDisabled(t *testing.T) {
	dataDir, whoisDir, customDir := writeFixture(t)
	o, err := New(Config{DataDir: dataDir, WhoisDir: whoisDir, CustomListDir: customDir, ASNLookup: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := o.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	_, err = o.Lookup("AS15169", Options{Mask: CategoryAll})
	if terr := AsError(err); terr == nil || terr.Code != CodeASNLookupDisabled {
		t.Fatalf("error = %v, want %s", err, CodeASNLookupDisabled)
	}
}

func TestLookup_InvalidQuery(t *testing.T) {
	o := newTestOrchestrator(t)

	for _, q := range []string{"", "not-an-ip", "1.2.3.4.5", "ASX", "as", "999.0.0.1"} {
		_, err := o.Lookup(q, Options{Mask: CategoryAll})
		if terr := AsError(err); terr == nil || terr.Code != CodeInvalidIPOrASN {
			t.Errorf("lookup %q: error = %v, want %s", q, err, CodeInvalidIPOrASN)
		}
	}
}

func TestLookup_NormalizationCanonicalizes(t *testing.T) {
	o := newTestOrchestrator(t)

	a, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	b, err := o.Lookup("::ffff:8.8.8.8", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup mapped form: %v", err)
	}
	a.ElapsedMS, b.ElapsedMS = 0, 0
	if !reflect.DeepEqual(a, b) {
		t.Errorf("mapped and plain spellings disagree:\n%+v\n%+v", a, b)
	}
	if b.IP != "8.8.8.8" {
		t.Errorf("canonical ip = %q, want 8.8.8.8", b.IP)
	}
}

func TestLookup_Idempotent(t *testing.T) {
	o := newTestOrchestrator(t)

	a, err := o.Lookup("7.7.7.7", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	b, err := o.Lookup("7.7.7.7", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	a.ElapsedMS, b.ElapsedMS = 0, 0
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated lookups differ:\n%+v\n%+v", a, b)
	}
}

func TestLookup_PerfBreakdown(t *testing.T) {
	o := newTestOrchestrator(t)

	rec, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll, MeasurePerf: true})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Perf == nil {
		t.Fatal("expected perf breakdown")
	}
	for _, cat := range []string{"asn", "company", "location", "datacenter", "blacklist", "flags", "custom", "clean"} {
		if _, ok := rec.Perf[cat]; !ok {
			t.Errorf("perf breakdown missing %q", cat)
		}
	}

	plain, err := o.Lookup("8.8.8.8", Options{Mask: CategoryAll})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if plain.Perf != nil {
		t.Error("perf must be absent unless requested")
	}
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"", CategoryAll, true},
		{"company", CategoryCompany, true},
		{"company,asn", CategoryCompany | CategoryASN, true},
		{" Location , BLACKLIST ", CategoryLocation | CategoryBlacklist, true},
		{"bogus", 0, false},
		{"company,bogus", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCategories(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseCategories(%q) = %v/%v, want %v/%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
