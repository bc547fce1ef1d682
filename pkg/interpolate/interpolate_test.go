package interpolate

import (
	"context"
	"math"
	"testing"

	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func feature(g orb.Geometry, props map[string]float64) Feature {
	return Feature{Geometry: g, Properties: props}
}

func column(features []Feature, col string) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = f.Properties[col]
	}
	return out
}

func TestInterpolateScenarios(t *testing.T) {
	halves := []Feature{
		feature(rect(-2, 0, 1, 2), map[string]float64{"pop": 1}),
		feature(rect(1, 0, 4, 2), map[string]float64{"pop": 3}),
	}
	units := []Feature{
		feature(rect(0, 0, 1, 1), map[string]float64{"pop": 0}),
		feature(rect(1, 0, 2, 1), map[string]float64{"pop": 0}),
	}

	testCases := []struct {
		name    string
		source  Feature
		targets []Feature
		opts    Options
		want    []float64
	}{
		{
			name:    "single intersecting target",
			source:  feature(rect(1, 1, 2, 2), map[string]float64{"votes": 100}),
			targets: []Feature{feature(rect(0, 0, 4, 4), nil), feature(rect(10, 0, 14, 4), nil)},
			want:    []float64{100, 0},
		},
		{
			name:    "even split",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 100}),
			targets: halves,
			want:    []float64{50, 50},
		},
		{
			name:    "even split rounded",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 101}),
			targets: halves,
			opts:    Options{RoundPreservingTotals: true},
			want:    []float64{51, 50},
		},
		{
			name:    "uncovered area goes to largest share",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 100}),
			targets: units,
			want:    []float64{75, 25},
		},
		{
			name:    "nearest centroid fallback",
			source:  feature(rect(20, 20, 21, 21), map[string]float64{"votes": 100}),
			targets: units,
			want:    []float64{0, 100},
		},
		{
			name:    "attribute weights",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 100}),
			targets: halves,
			opts:    Options{WeightAttribute: "pop"},
			want:    []float64{25, 75},
		},
		{
			name:    "zero attribute weights fall back to area",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 100}),
			targets: []Feature{feature(rect(-2, 0, 1, 2), map[string]float64{"pop": 0}), feature(rect(1, 0, 4, 2), map[string]float64{"pop": 0})},
			opts:    Options{WeightAttribute: "pop"},
			want:    []float64{50, 50},
		},
		{
			name:    "winner take all",
			source:  feature(rect(0, 0, 2, 2), map[string]float64{"votes": 100}),
			targets: units,
			opts:    Options{Mode: WinnerTakeAll},
			want:    []float64{100, 0},
		},
		{
			name:    "point source",
			source:  feature(orb.Point{3.9, 0.5}, map[string]float64{"votes": 7}),
			targets: units,
			want:    []float64{0, 7},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.SourceColumns = []string{"votes"}
			out, err := Interpolate(context.Background(), []Feature{tt.source}, tt.targets, opts, zap.NewNop())
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, column(out, "votes"), 1e-9)
		})
	}
}

func TestInterpolatePreservesTotals(t *testing.T) {
	// 4x4 unit targets, sources are offset 1.5 x 1.5 squares
	targets := make([]Feature, 0, 16)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			targets = append(targets, feature(rect(float64(x), float64(y), float64(x+1), float64(y+1)),
				map[string]float64{"pop": float64(1 + x*y)}))
		}
	}
	sources := []Feature{
		feature(rect(0.3, 0.2, 1.8, 1.7), map[string]float64{"a": 10.3, "b": 7}),
		feature(rect(1.7, 0.1, 3.2, 1.6), map[string]float64{"a": 21.1, "b": 13}),
		feature(rect(2.1, 2.4, 3.6, 3.9), map[string]float64{"a": 4.4, "b": 2}),
		feature(rect(0.6, 2.2, 2.1, 3.7), map[string]float64{"a": 8.9, "b": 31}),
		feature(rect(7, 7, 8, 8), map[string]float64{"a": 3, "b": 1}),
	}

	for _, weight := range []string{"", "pop"} {
		out, err := Interpolate(context.Background(), sources, targets, Options{
			SourceColumns:         []string{"a", "b"},
			WeightAttribute:       weight,
			RoundPreservingTotals: true,
			Workers:               3,
		}, zap.NewNop())
		require.NoError(t, err)

		for _, col := range []string{"a", "b"} {
			srcTotal := 0.0
			for _, s := range sources {
				srcTotal += s.Properties[col]
			}
			vals := column(out, col)
			for _, v := range vals {
				assert.Equal(t, math.Floor(v), v, "column %s must be integral", col)
			}
			assert.InDelta(t, math.Round(srcTotal), util.Sum(vals), 1e-9, "weight %q column %s", weight, col)
		}
	}
}

func TestInterpolateColumns(t *testing.T) {
	targets := []Feature{
		{ID: "t0", Geometry: rect(0, 0, 1, 1), Properties: map[string]float64{"pop": 5, "votes": 999}},
	}
	sources := []Feature{
		feature(rect(0, 0, 1, 1), map[string]float64{"d": 3, "r": 4}),
	}

	out, err := Interpolate(context.Background(), sources, targets, Options{
		SourceColumns: []string{"d", "r"},
		TargetColumns: []string{"votes", "r_votes"},
	}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "t0", out[0].ID)
	assert.Equal(t, map[string]float64{"pop": 5, "votes": 3, "r_votes": 4}, out[0].Properties)
	// the input is not modified
	assert.InDelta(t, 999, targets[0].Properties["votes"], 1e-12)
}

func TestInterpolateGeodesic(t *testing.T) {
	targets := []Feature{
		feature(rect(-0.02, 40, 0.01, 40.02), nil),
		feature(rect(0.01, 40, 0.04, 40.02), nil),
	}
	out, err := Interpolate(context.Background(), []Feature{
		feature(rect(0, 40, 0.02, 40.02), map[string]float64{"votes": 100}),
		feature(rect(1, 41, 1.01, 41.01), map[string]float64{"votes": 10}),
	}, targets, Options{SourceColumns: []string{"votes"}, Geodesic: true}, zap.NewNop())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 60}, column(out, "votes"), 1e-6)
}

func TestInterpolateValidation(t *testing.T) {
	targets := []Feature{feature(rect(0, 0, 1, 1), map[string]float64{"pop": 1})}
	sources := []Feature{feature(rect(0, 0, 1, 1), map[string]float64{"votes": 1})}

	testCases := []struct {
		name    string
		sources []Feature
		targets []Feature
		opts    Options
	}{
		{name: "no columns", sources: sources, targets: targets, opts: Options{}},
		{name: "column count mismatch", sources: sources, targets: targets,
			opts: Options{SourceColumns: []string{"votes"}, TargetColumns: []string{"a", "b"}}},
		{name: "missing source column", sources: sources, targets: targets,
			opts: Options{SourceColumns: []string{"population"}}},
		{name: "missing weight attribute", sources: sources, targets: targets,
			opts: Options{SourceColumns: []string{"votes"}, WeightAttribute: "households"}},
		{name: "unknown mode", sources: sources, targets: targets,
			opts: Options{SourceColumns: []string{"votes"}, Mode: Mode(9)}},
		{name: "no targets", sources: sources, targets: nil,
			opts: Options{SourceColumns: []string{"votes"}}},
		{name: "source without geometry", sources: []Feature{{Properties: map[string]float64{"votes": 1}}}, targets: targets,
			opts: Options{SourceColumns: []string{"votes"}}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpolate(context.Background(), tt.sources, tt.targets, tt.opts, zap.NewNop())
			assert.ErrorIs(t, err, util.ErrBadParamInput)
		})
	}
}

func TestRoundPreservingTotal(t *testing.T) {
	testCases := []struct {
		name string
		vals []float64
		want []float64
	}{
		{name: "ties to lowest index", vals: []float64{0.4, 0.4, 0.2}, want: []float64{1, 0, 0}},
		{name: "largest remainders", vals: []float64{1.2, 2.7, 3.6, 0.5}, want: []float64{1, 3, 4, 0}},
		{name: "integers untouched", vals: []float64{3, 0, 2}, want: []float64{3, 0, 2}},
		{name: "empty", vals: []float64{}, want: []float64{}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			RoundPreservingTotal(tt.vals)
			assert.Equal(t, tt.want, tt.vals)
		})
	}
}
