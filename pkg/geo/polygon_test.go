package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func square(minX, minY, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}}
}

func reversed(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		nr := make(orb.Ring, len(r))
		for j := range r {
			nr[j] = r[len(r)-1-j]
		}
		out[i] = nr
	}
	return out
}

func TestIntersectionArea(t *testing.T) {
	lShape := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}, {0, 0}}}
	withHole := orb.Polygon{
		orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		orb.Ring{{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1}},
	}

	testCases := []struct {
		name string
		a, b orb.Geometry
		want float64
	}{
		{name: "identical squares", a: square(0, 0, 2), b: square(0, 0, 2), want: 4},
		{name: "half overlap", a: square(0, 0, 2), b: square(1, 0, 2), want: 2},
		{name: "contained", a: square(0, 0, 10), b: square(2, 3, 1), want: 1},
		{name: "touching edge", a: square(0, 0, 1), b: square(1, 0, 1), want: 0},
		{name: "disjoint", a: square(0, 0, 1), b: square(5, 5, 1), want: 0},
		{name: "clockwise ring", a: reversed(square(0, 0, 2)), b: square(1, 1, 2), want: 1},
		{name: "concave l shape", a: lShape, b: square(0.5, 0.5, 1), want: 0.75},
		{name: "hole excluded", a: withHole, b: square(0, 0, 4), want: 12},
		{name: "square inside hole", a: withHole, b: square(1.5, 1.5, 1), want: 0},
		{name: "multipolygon", a: orb.MultiPolygon{square(0, 0, 1), square(3, 0, 1)}, b: square(0.5, 0, 3), want: 1},
		{name: "bound", a: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}}, b: square(1, 1, 4), want: 1},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IntersectionArea(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, IntersectionArea(tt.b, tt.a), 1e-9)
		})
	}
}

func TestIntersectionAreaSharedBoundaries(t *testing.T) {
	// a 3x3 county tiled by tracts whose edges lie on each other and on the county boundary
	county := square(0, 0, 3)
	tracts := []orb.Polygon{
		{orb.Ring{{0, 0}, {2, 0}, {2, 1}, {0, 1}, {0, 0}}},
		{orb.Ring{{2, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {2, 0}}},
		{orb.Ring{{0, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 1}}},
		{orb.Ring{{1, 1}, {2, 1}, {2, 2}, {1.5, 2.5}, {2, 3}, {1, 3}, {1, 1}}},
		{orb.Ring{{2, 2}, {2, 3}, {1.5, 2.5}, {2, 2}}},
	}
	wants := []float64{2, 3, 2, 1.75, 0.25}

	total := 0.0
	for i, tract := range tracts {
		got := IntersectionArea(county, tract)
		assert.InDelta(t, wants[i], got, 1e-9)
		assert.InDelta(t, Area(tract), got, 1e-9)
		total += got
	}
	assert.InDelta(t, 9, total, 1e-9)

	for i := range tracts {
		for j := i + 1; j < len(tracts); j++ {
			assert.InDelta(t, 0, IntersectionArea(tracts[i], tracts[j]), 1e-9)
		}
	}

	// an unclosed ring is treated as closed
	open := orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 1}, {0, 1}}}
	assert.InDelta(t, 2, IntersectionArea(county, open), 1e-9)
	// a ring without area contributes nothing
	flat := orb.Polygon{orb.Ring{{0, 0}, {1, 1}, {2, 2}, {0, 0}}}
	assert.InDelta(t, 0, IntersectionArea(county, flat), 1e-9)
}

func TestAreaAndCentroid(t *testing.T) {
	sq := square(0, 0, 2)
	assert.InDelta(t, 4, Area(sq), 1e-12)
	c := Centroid(sq)
	assert.InDelta(t, 1, c.X(), 1e-12)
	assert.InDelta(t, 1, c.Y(), 1e-12)
	assert.InDelta(t, 5, PlanarDistance(orb.Point{0, 0}, orb.Point{3, 4}), 1e-12)
}

func TestDistances(t *testing.T) {
	// one degree of latitude is ~111.19 km
	assert.InDelta(t, 111.19, CalculateHaversineDistance(0, 0, 1, 0), 0.01)
	assert.InDelta(t, 111.19, GeodesicDistance(orb.Point{0, 0}, orb.Point{0, 1}), 0.01)

	x, y := ProjectEquirectangular(1, 1, 0)
	assert.InDelta(t, 111.19, x, 0.01)
	assert.InDelta(t, 111.19, y, 0.01)
}

func TestTransformPolygons(t *testing.T) {
	out := TransformPolygons(square(0, 0, 1), func(p orb.Point) orb.Point {
		return orb.Point{p[0] * 2, p[1] * 3}
	})
	assert.Len(t, out, 1)
	assert.InDelta(t, 6, Area(out), 1e-12)
}
