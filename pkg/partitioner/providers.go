package partitioner

import (
	"context"
	"fmt"
	"math"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/geo"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/spatialindex"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"
)

// FromAttribute copies an existing districting stored as a numeric node attribute.
func FromAttribute(g *da.Graph, attr string) (map[da.Index]partition.DistrictID, error) {
	assignment := make(map[da.Index]partition.DistrictID, g.NumberOfVertices())
	for u := 0; u < g.NumberOfVertices(); u++ {
		v, ok := g.LookupAttribute(da.Index(u), attr)
		if !ok {
			return nil, fmt.Errorf("%w: %q on node %s", ErrMissingDistrict, attr, g.GetVertex(da.Index(u)).GetGeoID())
		}
		assignment[da.Index(u)] = partition.DistrictID(math.Round(v))
	}
	return assignment, nil
}

// Unit. geometry of one graph node.
type Unit struct {
	Node     da.Index
	Geometry orb.Geometry
}

// Region. a polygon that units get assigned to, e.g. an assembly district or a service territory.
type Region struct {
	ID       partition.DistrictID
	Geometry orb.Geometry
}

// AssignmentCache. persisted result of an expensive assignment, keyed by node.
type AssignmentCache interface {
	// Load returns ok=false when nothing was stored yet.
	Load(ctx context.Context) (map[da.Index]partition.DistrictID, bool, error)
	Save(ctx context.Context, assignment map[da.Index]partition.DistrictID) error
}

type regionIndex struct {
	regions []Region
	areas   []float64
	index   *spatialindex.Rtree
}

func newRegionIndex(regions []Region, log *zap.Logger) *regionIndex {
	ri := &regionIndex{
		regions: regions,
		areas:   make([]float64, len(regions)),
		index:   spatialindex.NewRtree(),
	}
	bounds := make([]orb.Bound, len(regions))
	for i, r := range regions {
		bounds[i] = r.Geometry.Bound()
		ri.areas[i] = geo.Area(r.Geometry)
	}
	ri.index.Build(bounds, log)
	return ri
}

// nearest. region with the smallest distance from p, ties to the smaller region then the lower index.
func (ri *regionIndex) nearest(p orb.Point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range ri.regions {
		d := planar.DistanceFrom(r.Geometry, p)
		if containsPoint(r.Geometry, p) {
			d = 0
		}
		if best < 0 || d < bestDist || (d == bestDist && ri.areas[i] < ri.areas[best]) {
			best = i
			bestDist = d
		}
	}
	return best
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	return planar.MultiPolygonContains(orb.MultiPolygon(geo.Polygons(g)), p)
}

/*
AssignByContainment. every unit goes to the region it overlaps most. a unit whose bounding box meets a
single region containing its centroid is assigned without computing the overlap. units overlapping no
region go to the nearest one.
*/
func AssignByContainment(units []Unit, regions []Region, log *zap.Logger) (map[da.Index]partition.DistrictID, error) {
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	ri := newRegionIndex(regions, log)

	assignment := make(map[da.Index]partition.DistrictID, len(units))
	fallbacks := 0
	for _, unit := range units {
		centroid := geo.Centroid(unit.Geometry)
		cands := ri.index.Search(unit.Geometry.Bound())
		if len(cands) == 1 && containsPoint(regions[cands[0]].Geometry, centroid) {
			assignment[unit.Node] = regions[cands[0]].ID
			continue
		}

		best := -1
		bestArea := 0.0
		for _, j := range cands {
			area := geo.IntersectionArea(unit.Geometry, regions[j].Geometry)
			if area > bestArea {
				best = j
				bestArea = area
			}
		}
		if best < 0 {
			best = ri.nearest(centroid)
			fallbacks++
		}
		assignment[unit.Node] = regions[best].ID
	}

	if fallbacks > 0 {
		log.Warn("units outside every region assigned to the nearest one", zap.Int("units", fallbacks))
	}
	return assignment, nil
}

/*
OverlapHeuristic. for overlapping regions (service territories): a unit goes to the region it overlaps
most, ties to the smallest region. a unit overlapping nothing goes to the nearest, smallest region.
a cached result covering every unit is returned as is, a fresh result is saved to the cache.
cache may be nil.
*/
func OverlapHeuristic(ctx context.Context, units []Unit, regions []Region, cache AssignmentCache,
	log *zap.Logger) (map[da.Index]partition.DistrictID, error) {
	if cache != nil {
		cached, ok, err := cache.Load(ctx)
		if err != nil {
			return nil, err
		}
		if ok && coversUnits(cached, units) {
			log.Info("using cached overlap assignment", zap.Int("units", len(cached)))
			return cached, nil
		}
	}
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}

	ri := newRegionIndex(regions, log)
	assignment := make(map[da.Index]partition.DistrictID, len(units))
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := -1
		bestArea := 0.0
		for _, j := range ri.index.Search(unit.Geometry.Bound()) {
			area := geo.IntersectionArea(unit.Geometry, regions[j].Geometry)
			if area <= 0 {
				continue
			}
			if best < 0 || area > bestArea || (area == bestArea && ri.areas[j] < ri.areas[best]) {
				best = j
				bestArea = area
			}
		}
		if best < 0 {
			best = ri.nearest(geo.Centroid(unit.Geometry))
		}
		assignment[unit.Node] = regions[best].ID
	}

	if cache != nil {
		if err := cache.Save(ctx, assignment); err != nil {
			return nil, err
		}
	}
	return assignment, nil
}

func coversUnits(assignment map[da.Index]partition.DistrictID, units []Unit) bool {
	for _, u := range units {
		if _, ok := assignment[u.Node]; !ok {
			return false
		}
	}
	return true
}
