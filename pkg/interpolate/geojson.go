package interpolate

import (
	"github.com/lintang-b-s/Districtx/pkg/geo"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/paulmach/orb/geojson"
)

// ParseMode. "fractional" or "winner-take-all", empty means fractional.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "fractional":
		return Fractional, nil
	case "winner-take-all", "winner":
		return WinnerTakeAll, nil
	default:
		return 0, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown interpolation mode %q", s)
	}
}

// FromFeatureCollection keeps the numeric properties of every feature. ids are read from idProperty.
func FromFeatureCollection(fc *geojson.FeatureCollection, idProperty string) []Feature {
	features := make([]Feature, len(fc.Features))
	for i, f := range fc.Features {
		features[i] = Feature{
			ID:         geo.FeatureID(f, idProperty),
			Geometry:   f.Geometry,
			Properties: geo.NumericProperties(f),
		}
	}
	return features
}

// ToFeatureCollection copies targets and sets columns from the interpolated features, matched by
// position. properties not listed in columns are left as they were.
func ToFeatureCollection(targets *geojson.FeatureCollection, interpolated []Feature, columns []string,
) (*geojson.FeatureCollection, error) {
	if len(targets.Features) != len(interpolated) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "%d target features but %d interpolated",
			len(targets.Features), len(interpolated))
	}
	out := geojson.NewFeatureCollection()
	for i, f := range targets.Features {
		g := geojson.NewFeature(f.Geometry)
		g.ID = f.ID
		for k, v := range f.Properties {
			g.Properties[k] = v
		}
		for _, col := range columns {
			g.Properties[col] = interpolated[i].Properties[col]
		}
		out.Append(g)
	}
	return out, nil
}
