// Package geo converts Iridium ring-alert satellite position fields (a
// 12-bit-signed XYZ ECEF-like triple in 4 km units) into a geographic
// position, and formats it for human-readable output (spec §4.D IRA
// fields).
package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// Position is a decoded satellite position: latitude/longitude as an s2
// value type plus altitude above the WGS84-ish reference the air interface
// assumes.
type Position struct {
	LatLng s2.LatLng
	AltKm  float64
}

// FromXYZ4km converts the IRA position fields (each a 12-bit signed integer
// counting 4 km units) to a Position. Formula grounded on
// frame_decode.c's parse_ira: lat = atan2(z, hypot(x,y)), lon = atan2(y,x),
// alt_km = round(4*|xyz|) - 6378 + 23.
func FromXYZ4km(x, y, z int) Position {
	xf, yf, zf := float64(x), float64(y), float64(z)
	xy := math.Hypot(xf, yf)
	latDeg := math.Atan2(zf, xy) * 180.0 / math.Pi
	lonDeg := math.Atan2(yf, xf) * 180.0 / math.Pi
	altKm := math.Round(math.Sqrt(xf*xf+yf*yf+zf*zf)*4.0) - 6378 + 23
	return Position{
		LatLng: s2.LatLngFromDegrees(latDeg, lonDeg),
		AltKm:  altKm,
	}
}

// LatHemisphere splits the position's latitude into an absolute-value
// degree count and a coordconv hemisphere, in the teacher's
// degrees+hemisphere style (src/coordconv.go).
func (p Position) LatHemisphere() (float64, coordconv.Hemisphere) {
	deg := p.LatLng.Lat.Degrees()
	if deg < 0 {
		return -deg, coordconv.HemisphereSouth
	}
	return deg, coordconv.HemisphereNorth
}

// LonDegrees returns signed longitude in degrees, east positive.
func (p Position) LonDegrees() float64 {
	return p.LatLng.Lng.Degrees()
}
