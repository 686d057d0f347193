package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tzneal/coordconv"
)

func TestFromXYZ4kmConcreteScenario(t *testing.T) {
	pos := FromXYZ4km(1000, 1000, 1000)

	assert.InDelta(t, 35.2644, pos.LatLng.Lat.Degrees(), 0.001)
	assert.InDelta(t, 45.0, pos.LatLng.Lng.Degrees(), 1e-9)
	assert.Equal(t, 573.0, pos.AltKm)
}

func TestFromXYZ4kmOrigin(t *testing.T) {
	pos := FromXYZ4km(0, 0, 0)
	assert.Equal(t, 0.0, pos.LatLng.Lat.Degrees())
	assert.Equal(t, -6355.0, pos.AltKm)
}

func TestLatHemisphereSplitsSign(t *testing.T) {
	north := FromXYZ4km(1000, 0, 1000)
	deg, hemi := north.LatHemisphere()
	assert.Greater(t, deg, 0.0)
	assert.Equal(t, coordconv.HemisphereNorth, hemi)

	south := FromXYZ4km(1000, 0, -1000)
	deg, hemi = south.LatHemisphere()
	assert.Greater(t, deg, 0.0)
	assert.Equal(t, coordconv.HemisphereSouth, hemi)
}
