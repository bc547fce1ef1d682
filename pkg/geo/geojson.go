package geo

import (
	"os"
	"sort"
	"strconv"

	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/paulmach/orb/geojson"
)

func ReadFeatureCollection(filename string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrIO, "read geojson %s", filename)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "decode geojson %s", filename)
	}
	return fc, nil
}

func WriteFeatureCollection(filename string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return util.WrapErrorf(err, util.ErrInternal, "encode geojson %s", filename)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return util.WrapErrorf(err, util.ErrIO, "write geojson %s", filename)
	}
	return nil
}

// FeatureID. the idProperty property as text, falling back to the feature id. numbers are formatted
// without exponent so census GEOIDs survive.
func FeatureID(f *geojson.Feature, idProperty string) string {
	if v, ok := f.Properties[idProperty]; ok && idProperty != "" {
		if s := formatID(v); s != "" {
			return s
		}
	}
	return formatID(f.ID)
}

func formatID(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// NumericProperties returns the numeric properties of f. booleans count as 0/1, everything else is skipped.
func NumericProperties(f *geojson.Feature) map[string]float64 {
	out := make(map[string]float64, len(f.Properties))
	for k, v := range f.Properties {
		switch t := v.(type) {
		case float64:
			out[k] = t
		case bool:
			if t {
				out[k] = 1
			} else {
				out[k] = 0
			}
		}
	}
	return out
}

// SortedKeys. property names in lexical order.
func SortedKeys(props map[string]float64) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
