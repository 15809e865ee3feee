package intel

import (
	"math"
	"net/netip"
	"time"

	"github.com/TomasB/ipintel/internal/rangeidx"
)

// Two independent coordinate sources disagreeing by more than this
// make the result untrustworthy rather than a tiebreak.
const maxSourceDivergenceKM = 300.0

const earthRadiusKM = 6371.0

// Distance computes the great-circle distance in kilometers between
// the locations of two IP addresses. With strictSourceAgreement set
// and alternate coordinates available for both addresses, the result
// is cross-checked against the alternates and rejected when the two
// estimates diverge.
func (o *Orchestrator) Distance(ip1, ip2 string, strictSourceAgreement bool) (*DistanceResult, error) {
	snap, terr := o.current()
	if terr != nil {
		return nil, terr
	}
	started := time.Now()

	key1, err := rangeidx.NormalizeAddr(ip1)
	if err != nil {
		return nil, errf(CodeInvalidIP1, "%q is not a valid IP address", ip1)
	}
	key2, err := rangeidx.NormalizeAddr(ip2)
	if err != nil {
		return nil, errf(CodeInvalidIP2, "%q is not a valid IP address", ip2)
	}

	loc1, terr := o.locationFor(snap, key1)
	if terr != nil {
		return nil, terr
	}
	loc2, terr := o.locationFor(snap, key2)
	if terr != nil {
		return nil, terr
	}

	primary := haversineKM(loc1.Latitude, loc1.Longitude, loc2.Latitude, loc2.Longitude)

	if strictSourceAgreement && hasAlternate(loc1) && hasAlternate(loc2) {
		alternate := haversineKM(*loc1.Latitude2, *loc1.Longitude2, *loc2.Latitude2, *loc2.Longitude2)
		if math.Abs(primary-alternate) > maxSourceDivergenceKM {
			return nil, errf(CodeDistanceFailed,
				"coordinate sources diverge by %.0f km (primary %.0f km, alternate %.0f km)",
				math.Abs(primary-alternate), primary, alternate)
		}
	}

	return &DistanceResult{
		IP1:        key1.String(),
		IP2:        key2.String(),
		DistanceKM: primary,
		ElapsedMS:  elapsedMS(started),
	}, nil
}

func (o *Orchestrator) locationFor(snap *snapshot, key netip.Addr) (*LocationDetail, *Error) {
	loc, ok := o.resolveLocation(snap, key)
	if !ok {
		return nil, errf(CodeNoLocationData, "no location data for %s", key)
	}
	return loc, nil
}

func hasAlternate(loc *LocationDetail) bool {
	return loc.Latitude2 != nil && loc.Longitude2 != nil
}

// haversineKM is the great-circle distance between two points given in
// degrees.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
