package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Polygons flattens a polygonal geometry (Polygon, MultiPolygon, Bound) into its polygons.
// any other geometry has no area and yields nil.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch t := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{t}
	case orb.MultiPolygon:
		return t
	case orb.Bound:
		return []orb.Polygon{t.ToPolygon()}
	default:
		return nil
	}
}

// Area. planar area of g.
func Area(g orb.Geometry) float64 {
	return planar.Area(g)
}

// Centroid. planar area-weighted centroid of g.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

func PlanarDistance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// TransformPolygons applies fn to every vertex of a polygonal geometry and returns the result as a MultiPolygon.
func TransformPolygons(g orb.Geometry, fn func(p orb.Point) orb.Point) orb.MultiPolygon {
	polys := Polygons(g)
	out := make(orb.MultiPolygon, 0, len(polys))
	for _, poly := range polys {
		np := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			nr := make(orb.Ring, len(ring))
			for i, p := range ring {
				nr[i] = fn(p)
			}
			np = append(np, nr)
		}
		out = append(out, np)
	}
	return out
}

type signedTriangle struct {
	pts  [3]orb.Point // counter clockwise
	sign float64
}

/*
IntersectionArea. exact planar area of a ∩ b for polygonal geometries (holes and multipolygons included).

every closed ring is the signed sum of the triangles (o, p_i, p_i+1) for a fixed origin o, so the indicator
function of a polygon is w_a(x) = sum_i s_i * 1[x in T_i] with s_i the orientation of T_i (outer rings
normalized ccw, holes cw). then

	area(a ∩ b) = ∫ w_a(x) w_b(x) dx = sum_i sum_j s_i s_j area(T_i ∩ T_j)

and every T_i ∩ T_j is an intersection of two convex triangles (sutherland-hodgman clipping).
shared boundaries contribute nothing, which matters for census geometries nested in counties.
time complexity: O(|a| * |b|) triangle clips.
*/
func IntersectionArea(a, b orb.Geometry) float64 {
	if a == nil || b == nil {
		return 0
	}
	ba, bb := a.Bound(), b.Bound()
	if !ba.Intersects(bb) {
		return 0
	}

	origin := ba.Center()
	ta := fanTriangles(Polygons(a), origin)
	tb := fanTriangles(Polygons(b), origin)

	total := 0.0
	for i := range ta {
		for j := range tb {
			inter := convexPolygonArea(clipConvex(ta[i].pts[:], tb[j].pts[:]))
			total += ta[i].sign * tb[j].sign * inter
		}
	}

	if total < 0 {
		// only floating point noise can make this negative
		return 0
	}
	return total
}

func fanTriangles(polys []orb.Polygon, origin orb.Point) []signedTriangle {
	tris := make([]signedTriangle, 0, 64)
	for _, poly := range polys {
		for ri, ring := range poly {
			n := len(ring)
			if n > 1 && ring[0] == ring[n-1] {
				n--
			}
			if n < 3 {
				continue
			}

			closed := append(orb.Ring(nil), ring[:n]...)
			closed = append(closed, ring[0])
			orientation := closed.Orientation()
			if orientation == 0 {
				continue
			}
			want := orb.CCW
			if ri > 0 {
				want = orb.CW
			}
			reverse := orientation != want

			for k := 0; k < n; k++ {
				p, q := ring[k], ring[(k+1)%n]
				if reverse {
					p, q = q, p
				}
				s := cross(origin, p, q)
				if math.Abs(s) < 1e-18 {
					continue
				}
				t := signedTriangle{sign: 1}
				if s > 0 {
					t.pts = [3]orb.Point{origin, p, q}
				} else {
					t.pts = [3]orb.Point{origin, q, p}
					t.sign = -1
				}
				tris = append(tris, t)
			}
		}
	}
	return tris
}

func ringSignedArea(ring []orb.Point) float64 {
	s := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		s += p[0]*q[1] - q[0]*p[1]
	}
	return s / 2
}

// cross. z component of (b-a) x (c-a); > 0 when c is left of a->b.
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// clipConvex clips convex subject against convex ccw clip polygon (sutherland-hodgman).
func clipConvex(subject, clip []orb.Point) []orb.Point {
	output := append([]orb.Point(nil), subject...)
	for i := range clip {
		if len(output) == 0 {
			break
		}
		a, b := clip[i], clip[(i+1)%len(clip)]
		input := output
		output = make([]orb.Point, 0, len(input)+2)
		for j := range input {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]
			cc, cp := cross(a, b, cur), cross(a, b, prev)
			curIn, prevIn := cc >= 0, cp >= 0
			if curIn {
				if !prevIn {
					output = append(output, lerpAt(prev, cur, cp, cc))
				}
				output = append(output, cur)
			} else if prevIn {
				output = append(output, lerpAt(prev, cur, cp, cc))
			}
		}
	}
	return output
}

// lerpAt. point on segment p->q where the signed side value crosses zero.
func lerpAt(p, q orb.Point, sp, sq float64) orb.Point {
	t := sp / (sp - sq)
	return orb.Point{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])}
}

func convexPolygonArea(pts []orb.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	return math.Abs(ringSignedArea(pts))
}
