package geo

import (
	"math"
	"testing"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/stretchr/testify/assert"
)

var points = []domain.Coordinates{
	{Lat: -6.2088, Lon: 106.8456},
	{Lat: -6.9175, Lon: 107.6191},
	{Lat: 1.4748, Lon: 124.8426},
	{Lat: 0, Lon: 0},
	{Lat: 89.9, Lon: -179.9},
	{Lat: -45.5, Lon: 170.25},
}

func TestHaversineSamePointIsZero(t *testing.T) {
	for _, p := range points {
		assert.InDelta(t, 0, Distance(p, p), 1e-9, "point %v", p)
	}
}

func TestHaversineIsSymmetric(t *testing.T) {
	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9, "%v <-> %v", a, b)
		}
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	oneDegree := 2 * math.Pi * EarthRadiusKm / 360
	assert.InDelta(t, oneDegree, Haversine(0, 0, 1, 0), 1e-6)
	assert.InDelta(t, oneDegree, Haversine(0, 0, 0, 1), 1e-6)

	// Jakarta to Bandung.
	assert.InDelta(t, 116, Haversine(-6.2088, 106.8456, -6.9175, 107.6191), 2)

	// Antipodes are half the circumference apart.
	assert.InDelta(t, math.Pi*EarthRadiusKm, Haversine(0, 0, 0, 180), 1e-6)
}

func TestHaversineNearAntipodesIsFinite(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"exact antipode", 10, 20, -10, -160},
		{"pole to pole", 90, 0, -90, 0},
		{"equator wrap", 0, -179.999999, 0, 0.000001},
		{"southern", -33.8688, 151.2093, 33.8688, -28.7907},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.False(t, math.IsNaN(d))
			assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1)
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.Coordinates
		valid bool
	}{
		{"origin", domain.Coordinates{}, true},
		{"jakarta", domain.Coordinates{Lat: -6.2, Lon: 106.8}, true},
		{"bounds", domain.Coordinates{Lat: 90, Lon: -180}, true},
		{"lat too big", domain.Coordinates{Lat: 90.5, Lon: 0}, false},
		{"lon too small", domain.Coordinates{Lat: 0, Lon: -180.1}, false},
		{"nan", domain.Coordinates{Lat: math.NaN(), Lon: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
			}
		})
	}
}
