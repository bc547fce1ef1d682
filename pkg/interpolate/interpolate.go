package interpolate

import (
	"context"
	"math"
	"sort"

	"github.com/lintang-b-s/Districtx/pkg/geo"
	"github.com/lintang-b-s/Districtx/pkg/spatialindex"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	// Fractional splits every source value over the targets it overlaps.
	Fractional Mode = iota
	// WinnerTakeAll gives every source value to the target with the largest share.
	WinnerTakeAll
)

// Feature. a geometry with numeric attributes. ID is carried through untouched.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]float64
}

type Options struct {
	SourceColumns []string
	// TargetColumns names the new target columns, index-aligned with SourceColumns. empty means the
	// source column names. existing target columns with these names are replaced.
	TargetColumns []string
	// WeightAttribute splits values proportional to this target attribute instead of intersection area.
	WeightAttribute string
	Mode            Mode
	// RoundPreservingTotals rounds every target column to integers while keeping its rounded total.
	RoundPreservingTotals bool
	// Geodesic treats coordinates as lon/lat degrees: areas are measured in a local equirectangular
	// projection and nearest targets by great circle distance.
	Geodesic bool
	Workers  int
}

// Share. fraction of one source value that goes to target Target.
type Share struct {
	Target   int
	Fraction float64
}

// Interpolator. spatial index over a fixed set of target features.
type Interpolator struct {
	targets   []Feature
	index     *spatialindex.Rtree
	centroids []orb.Point
	log       *zap.Logger
}

func NewInterpolator(targets []Feature, log *zap.Logger) *Interpolator {
	bounds := make([]orb.Bound, len(targets))
	centroids := make([]orb.Point, len(targets))
	for i, t := range targets {
		if t.Geometry == nil {
			continue
		}
		bounds[i] = t.Geometry.Bound()
		centroids[i] = geo.Centroid(t.Geometry)
	}
	index := spatialindex.NewRtree()
	index.Build(bounds, log)
	return &Interpolator{
		targets:   targets,
		index:     index,
		centroids: centroids,
		log:       log,
	}
}

// Interpolate apportions the source columns of every source feature onto the targets and returns copies
// of the targets with the new columns.
func Interpolate(ctx context.Context, sources, targets []Feature, opts Options, log *zap.Logger) ([]Feature, error) {
	return NewInterpolator(targets, log).Interpolate(ctx, sources, opts)
}

func (ip *Interpolator) validate(sources []Feature, opts Options) ([]string, error) {
	if len(opts.SourceColumns) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "no source columns")
	}
	targetCols := opts.TargetColumns
	if len(targetCols) == 0 {
		targetCols = opts.SourceColumns
	}
	if len(targetCols) != len(opts.SourceColumns) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "%d source columns but %d target columns",
			len(opts.SourceColumns), len(targetCols))
	}
	if opts.Mode != Fractional && opts.Mode != WinnerTakeAll {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown interpolation mode %d", opts.Mode)
	}
	if len(ip.targets) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "no target features")
	}
	for i, t := range ip.targets {
		if t.Geometry == nil {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "target %d has no geometry", i)
		}
		if opts.WeightAttribute != "" {
			if _, ok := t.Properties[opts.WeightAttribute]; !ok {
				return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "target %d has no weight attribute %q",
					i, opts.WeightAttribute)
			}
		}
	}
	for i, s := range sources {
		if s.Geometry == nil {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "source %d has no geometry", i)
		}
		for _, col := range opts.SourceColumns {
			if _, ok := s.Properties[col]; !ok {
				return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "source %d has no column %q", i, col)
			}
		}
	}
	return targetCols, nil
}

func (ip *Interpolator) Interpolate(ctx context.Context, sources []Feature, opts Options) ([]Feature, error) {
	targetCols, err := ip.validate(sources, opts)
	if err != nil {
		return nil, err
	}

	shares := make([][]Share, len(sources))
	nearest := make([]bool, len(sources))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Workers, 1))
	for i := range sources {
		i := i
		eg.Go(func() error {
			if util.StopConcurrentOperation(ctx) {
				return ctx.Err()
			}
			shares[i], nearest[i] = ip.shares(sources[i], opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	acc := make([][]float64, len(targetCols))
	for c := range acc {
		acc[c] = make([]float64, len(ip.targets))
	}
	fallbacks := 0
	for i, src := range sources {
		if nearest[i] {
			fallbacks++
		}
		for c, col := range opts.SourceColumns {
			val := src.Properties[col]
			for _, sh := range shares[i] {
				acc[c][sh.Target] += val * sh.Fraction
			}
		}
	}

	if opts.RoundPreservingTotals {
		for c := range acc {
			RoundPreservingTotal(acc[c])
		}
	}

	out := make([]Feature, len(ip.targets))
	for j, t := range ip.targets {
		props := make(map[string]float64, len(t.Properties)+len(targetCols))
		for k, v := range t.Properties {
			props[k] = v
		}
		for c, col := range targetCols {
			props[col] = acc[c][j]
		}
		out[j] = Feature{ID: t.ID, Geometry: t.Geometry, Properties: props}
	}

	ip.log.Info("interpolation done",
		zap.Int("sources", len(sources)),
		zap.Int("targets", len(ip.targets)),
		zap.Int("nearest_fallbacks", fallbacks),
		zap.Strings("columns", targetCols))
	return out, nil
}

// project returns a and b in the plane the areas are measured in.
func (ip *Interpolator) project(a, b orb.Geometry, opts Options) (orb.Geometry, orb.Geometry) {
	if !opts.Geodesic {
		return a, b
	}
	lat0 := geo.Centroid(a).Lat()
	fn := func(p orb.Point) orb.Point {
		x, y := geo.ProjectEquirectangular(p.Lon(), p.Lat(), lat0)
		return orb.Point{x, y}
	}
	return geo.TransformPolygons(a, fn), geo.TransformPolygons(b, fn)
}

/*
Shares. how one source value is split over the targets:
  - no target overlaps the source: everything to the target with the nearest centroid,
  - one target overlaps: everything to it,
  - several overlap: by intersection area / source area, the part of the source outside every target goes
    to the largest share; or by the weight attribute of the overlapping targets. a zero weight sum falls
    back to intersection areas, then to an even split.

WinnerTakeAll collapses the split onto the largest share (ties to the lowest target index).
fractions always sum to 1.
*/
func (ip *Interpolator) Shares(src Feature, opts Options) []Share {
	out, _ := ip.shares(src, opts)
	return out
}

func (ip *Interpolator) shares(src Feature, opts Options) ([]Share, bool) {
	candidates := ip.index.Search(src.Geometry.Bound())

	matches := make([]int, 0, len(candidates))
	areas := make([]float64, 0, len(candidates))
	for _, j := range candidates {
		a, b := ip.project(src.Geometry, ip.targets[j].Geometry, opts)
		inter := geo.IntersectionArea(a, b)
		if inter > 0 {
			matches = append(matches, j)
			areas = append(areas, inter)
		}
	}

	switch len(matches) {
	case 0:
		return []Share{{Target: ip.nearest(src.Geometry, opts), Fraction: 1}}, true
	case 1:
		return []Share{{Target: matches[0], Fraction: 1}}, false
	}

	fractions := make([]float64, len(matches))
	if opts.WeightAttribute == "" {
		srcGeom, _ := ip.project(src.Geometry, src.Geometry, opts)
		srcArea := geo.Area(srcGeom)
		if srcArea > 0 {
			for i, a := range areas {
				fractions[i] = a / srcArea
			}
			fractions[argmax(fractions)] += 1 - util.Sum(fractions)
		} else {
			normalize(fractions, areas)
		}
	} else {
		weights := make([]float64, len(matches))
		for i, j := range matches {
			weights[i] = ip.targets[j].Properties[opts.WeightAttribute]
		}
		if !normalize(fractions, weights) {
			normalize(fractions, areas)
		}
	}

	if opts.Mode == WinnerTakeAll {
		return []Share{{Target: matches[argmax(fractions)], Fraction: 1}}, false
	}
	out := make([]Share, len(matches))
	for i, j := range matches {
		out[i] = Share{Target: j, Fraction: fractions[i]}
	}
	return out, false
}

// normalize writes w/sum(w) into dst, or an even split when the sum is not positive. it reports whether
// the weights were usable.
func normalize(dst, w []float64) bool {
	total := util.Sum(w)
	if total <= 0 {
		for i := range dst {
			dst[i] = 1 / float64(len(dst))
		}
		return false
	}
	for i := range dst {
		dst[i] = w[i] / total
	}
	return true
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

// nearest. target with the closest centroid, ties to the lowest index.
func (ip *Interpolator) nearest(g orb.Geometry, opts Options) int {
	c := geo.Centroid(g)
	best, bestDist := 0, math.Inf(1)
	for j, tc := range ip.centroids {
		var d float64
		if opts.Geodesic {
			d = geo.GeodesicDistance(c, tc)
		} else {
			d = geo.PlanarDistance(c, tc)
		}
		if d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

/*
RoundPreservingTotal rounds vals in place to integers: every value is floored, then the n values with the
largest fractional remainder are incremented, n being the rounded sum of the remainders. ties go to the
lowest index. the rounded column sums to round(sum(vals)) up to floating point error in the input.
*/
func RoundPreservingTotal(vals []float64) {
	rem := make([]float64, len(vals))
	total := 0.0
	for i, v := range vals {
		f := math.Floor(v)
		rem[i] = v - f
		total += rem[i]
		vals[i] = f
	}
	n := int(math.Round(total))

	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rem[order[a]] > rem[order[b]]
	})
	for _, i := range order[:min(n, len(order))] {
		vals[i]++
	}
}
