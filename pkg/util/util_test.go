package util

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorf(t *testing.T) {
	orig := io.ErrUnexpectedEOF
	err := WrapErrorf(orig, ErrIO, "read graph %s", "tracts.graph")

	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "read graph tracts.graph")

	var uerr *Error
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, ErrIO, uerr.Code())
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("a b\r\nlast"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "a b", line)

	line, err = ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = ReadLine(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSumAndReverse(t *testing.T) {
	assert.Equal(t, 6, Sum([]int{1, 2, 3}))
	assert.InDelta(t, 0.6, Sum([]float64{0.1, 0.2, 0.3}), 1e-12)
	assert.Equal(t, []int{3, 2, 1}, ReverseG([]int{1, 2, 3}))
}

func TestLoadRunConfig(t *testing.T) {
	testCases := []struct {
		name    string
		values  map[string]interface{}
		wantErr bool
	}{
		{
			name:   "defaults with graph path",
			values: map[string]interface{}{"graph_path": "tracts.graph"},
		},
		{
			name:    "missing graph path",
			values:  map[string]interface{}{},
			wantErr: true,
		},
		{
			name:    "unknown initial method",
			values:  map[string]interface{}{"graph_path": "g", "initial_method": "random"},
			wantErr: true,
		},
		{
			name:    "overlap without geometries",
			values:  map[string]interface{}{"graph_path": "g", "initial_method": "overlap"},
			wantErr: true,
		},
		{
			name:    "containment without geometries",
			values:  map[string]interface{}{"graph_path": "g", "initial_method": "containment", "units_geojson": "units.geojson"},
			wantErr: true,
		},
		{
			name:    "unknown objective",
			values:  map[string]interface{}{"graph_path": "g", "objective": "compactness"},
			wantErr: true,
		},
		{
			name:    "one district",
			values:  map[string]interface{}{"graph_path": "g", "n_districts": 1},
			wantErr: true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			cfg, err := LoadRunConfig(v)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadParamInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 25, cfg.NDistricts)
			assert.Equal(t, INITIAL_EXISTING, cfg.InitialMethod)
			assert.Equal(t, -1, cfg.MaxDepth)
			assert.InDelta(t, 0.9, cfg.GoalFraction, 1e-12)
			assert.Equal(t, OBJECTIVE_CROSSOVER, cfg.Objective)
		})
	}
}
