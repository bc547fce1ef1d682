package geo

import (
	"math"

	"github.com/lintang-b-s/Districtx/pkg/util"
)

const (
	earthRadiusKM = 6371.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// ProjectEquirectangular. local equirectangular projection (km) of a lon/lat point around latitude lat0.
// good enough for area ratios of tract-sized polygons.
func ProjectEquirectangular(lon, lat, lat0 float64) (float64, float64) {
	x := util.DegreeToRadians(lon) * math.Cos(util.DegreeToRadians(lat0)) * earthRadiusKM
	y := util.DegreeToRadians(lat) * earthRadiusKM
	return x, y
}
