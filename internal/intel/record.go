// Package intel composes the loaded range indexes into per-query
// intelligence records: classification flags, ownership, geolocation
// and whois text for a single IP address or ASN.
package intel

// Record is the composed answer for one query.
type Record struct {
	IP  string `json:"ip"`
	RIR string `json:"rir,omitempty"`

	IsBogon      bool `json:"is_bogon"`
	IsMobile     bool `json:"is_mobile"`
	IsSatellite  bool `json:"is_satellite"`
	IsCrawler    bool `json:"is_crawler"`
	IsDatacenter bool `json:"is_datacenter"`
	IsTor        bool `json:"is_tor"`
	IsProxy      bool `json:"is_proxy"`
	IsVPN        bool `json:"is_vpn"`
	IsAbuser     bool `json:"is_abuser"`

	Company    *CompanyDetail    `json:"company,omitempty"`
	Abuse      *AbuseDetail      `json:"abuse,omitempty"`
	ASN        *ASNDetail        `json:"asn,omitempty"`
	Datacenter *DatacenterDetail `json:"datacenter,omitempty"`
	VPN        *VPNDetail        `json:"vpn,omitempty"`
	Location   *LocationDetail   `json:"location,omitempty"`

	ElapsedMS float64            `json:"elapsed_ms"`
	Perf      map[string]float64 `json:"perf,omitempty"`
}

// ASNDetail describes the autonomous system owning a range.
type ASNDetail struct {
	ASN     uint32 `json:"asn"`
	Route   string `json:"route,omitempty"`
	Descr   string `json:"descr,omitempty"`
	Country string `json:"country,omitempty"`
	Org     string `json:"org,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Type    string `json:"type,omitempty"`
	RIR     string `json:"rir,omitempty"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// CompanyDetail describes the organization a range is allocated to.
// The RIR and Abuse fields are hoisted to the top-level record during
// composition and never appear nested in responses.
type CompanyDetail struct {
	Name    string       `json:"name,omitempty"`
	Domain  string       `json:"domain,omitempty"`
	Network string       `json:"network,omitempty"`
	Type    string       `json:"type,omitempty"`
	RIR     string       `json:"rir,omitempty"`
	Abuse   *AbuseDetail `json:"abuse,omitempty"`
	// ASN disambiguates ownership when one network hosts several
	// organizations; filled from the persisted entry.
	ASN uint32 `json:"asn,omitempty"`
}

// AbuseDetail is the abuse contact for a range.
type AbuseDetail struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// DatacenterDetail describes a hosting provider range.
type DatacenterDetail struct {
	Datacenter string `json:"datacenter,omitempty"`
	Network    string `json:"network,omitempty"`
	Region     string `json:"region,omitempty"`
	Service    string `json:"service,omitempty"`
}

// VPNDetail describes a known VPN exit range.
type VPNDetail struct {
	Service  string `json:"service,omitempty"`
	URL      string `json:"url,omitempty"`
	Type     string `json:"type,omitempty"`
	LastSeen string `json:"last_seen,omitempty"`
}

// BlacklistDetail is the persisted value of the blacklist index. One
// entry can raise several sub-flags at once; a structured VPNDetail
// implies the vpn flag.
type BlacklistDetail struct {
	Tor       bool       `json:"tor,omitempty"`
	Proxy     bool       `json:"proxy,omitempty"`
	Abuser    bool       `json:"abuser,omitempty"`
	VPN       bool       `json:"vpn,omitempty"`
	VPNDetail *VPNDetail `json:"vpn_detail,omitempty"`
}

// LocationDetail is the geolocation of a range. Latitude2/Longitude2
// come from the secondary coordinate source when one is configured.
type LocationDetail struct {
	Continent   string   `json:"continent,omitempty"`
	Country     string   `json:"country,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	State       string   `json:"state,omitempty"`
	City        string   `json:"city,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Zip         string   `json:"zip,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Latitude2   *float64 `json:"latitude2,omitempty"`
	Longitude2  *float64 `json:"longitude2,omitempty"`
}

// DistanceResult is the output of a distance query.
type DistanceResult struct {
	IP1        string  `json:"ip1"`
	IP2        string  `json:"ip2"`
	DistanceKM float64 `json:"distance_km"`
	ElapsedMS  float64 `json:"elapsed_ms"`
}
