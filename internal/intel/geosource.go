package intel

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// GeoSource is the optional secondary coordinate source: a MaxMind
// city MMDB consulted alongside the primary location index. Its
// coordinates feed the latitude2/longitude2 fields and the strict
// source-agreement check of distance queries.
type GeoSource struct {
	db *geoip2.Reader
}

// OpenGeoSource opens the MMDB file at the given path.
func OpenGeoSource(path string) (*GeoSource, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &GeoSource{db: db}, nil
}

// Coordinates returns the city-level coordinates for the address, or
// ok=false when the MMDB has no usable record.
func (g *GeoSource) Coordinates(key netip.Addr) (lat, lon float64, ok bool) {
	rec, err := g.db.City(net.IP(key.AsSlice()))
	if err != nil || rec == nil {
		return 0, 0, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return 0, 0, false
	}
	return rec.Location.Latitude, rec.Location.Longitude, true
}

// Close releases the MMDB reader resources.
func (g *GeoSource) Close() error {
	return g.db.Close()
}
