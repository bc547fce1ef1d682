package geo

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// GeodesicDistance. great circle distance in km between two lon/lat points.
func GeodesicDistance(a, b orb.Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	lb := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return la.Distance(lb).Radians() * earthRadiusKM
}
