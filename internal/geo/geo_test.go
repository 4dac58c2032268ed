package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/geo"
)

func TestNewCoordinate_Valid(t *testing.T) {
	c, err := geo.NewCoordinate(28.6315, 77.2167)
	require.NoError(t, err)
	assert.Equal(t, 28.6315, c.Lat)
	assert.Equal(t, 77.2167, c.Lon)
}

func TestNewCoordinate_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"latitude too high", 91, 0},
		{"latitude too low", -91, 0},
		{"longitude too high", 0, 181},
		{"longitude too low", 0, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geo.NewCoordinate(tt.lat, tt.lon)
			require.Error(t, err)
			assert.ErrorIs(t, err, geo.ErrOutOfRange)
		})
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Connaught Place to India Gate, roughly 2.3 km.
	cp := geo.Coordinate{Lat: 28.6315, Lon: 77.2167}
	indiaGate := geo.Coordinate{Lat: 28.6129, Lon: 77.2295}

	d := cp.DistanceKm(indiaGate)
	assert.InDelta(t, 2.4, d, 0.3)

	// Symmetric.
	assert.InDelta(t, d, indiaGate.DistanceKm(cp), 1e-9)
}

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	c := geo.Coordinate{Lat: 52.370216, Lon: 4.895168}
	assert.Equal(t, 0.0, c.DistanceKm(c))
}

func TestDistanceMeters(t *testing.T) {
	a := geo.Coordinate{Lat: 28.6315, Lon: 77.2167}
	b := geo.Coordinate{Lat: 28.6129, Lon: 77.2295}
	assert.InDelta(t, a.DistanceKm(b)*1000, a.DistanceMeters(b), 1e-6)
}

func TestMidpoint_HalvesDistance(t *testing.T) {
	a := geo.Coordinate{Lat: 28.6304, Lon: 77.2177}
	b := geo.Coordinate{Lat: 28.6259, Lon: 77.2114}
	mid := a.Midpoint(b)

	full := a.DistanceKm(b)
	half := a.DistanceKm(mid)
	assert.InDelta(t, full/2, half, full*0.01)
}

func TestPathLengthKm(t *testing.T) {
	waypoints := []geo.Coordinate{
		{Lat: 28.6304, Lon: 77.2177},
		{Lat: 28.6289, Lon: 77.2156},
		{Lat: 28.6274, Lon: 77.2135},
	}

	total := geo.PathLengthKm(waypoints)
	sum := waypoints[0].DistanceKm(waypoints[1]) + waypoints[1].DistanceKm(waypoints[2])
	assert.InDelta(t, sum, total, 1e-12)

	assert.Equal(t, 0.0, geo.PathLengthKm(nil))
	assert.Equal(t, 0.0, geo.PathLengthKm(waypoints[:1]))
}
