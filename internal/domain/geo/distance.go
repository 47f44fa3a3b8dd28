package geo

import (
	"math"

	"github.com/kailas-cloud/culturai/internal/domain/event"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two points
// given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// DistanceToEvent returns the distance in whole kilometers from a known city to the event.
// ok is false when the city is not in the gazetteer or the event has no coordinates.
func (g Gazetteer) DistanceToEvent(city string, ev event.Event) (km float64, ok bool) {
	origin, found := g.Coordinates(city)
	if !found || !ev.HasCoordinates() {
		return 0, false
	}
	return math.Round(HaversineKm(origin.Lat, origin.Lon, ev.Latitude, ev.Longitude)), true
}
