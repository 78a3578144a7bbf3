// Package geo holds the great-circle math shared by the tracker and the
// proximity index.
package geo

import (
	"math"

	"github.com/gdugdh24/geopresence/internal/domain"
	"github.com/go-playground/validator/v10"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a just outside [0,1] near the antipodes.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is Haversine over two coordinate pairs.
func Distance(a, b domain.Coordinates) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

type coordinates struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

var validate = validator.New()

// ValidateCoordinates rejects values outside [-90,90] x [-180,180] and NaNs.
func ValidateCoordinates(c domain.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return domain.ErrInvalidCoordinates
	}
	if err := validate.Struct(coordinates{Lat: c.Lat, Lon: c.Lon}); err != nil {
		return domain.ErrInvalidCoordinates
	}
	return nil
}
