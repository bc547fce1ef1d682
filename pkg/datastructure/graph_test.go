package datastructure

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// twoIslands. a triangle 0-1-2 near the origin and a path 3-4 two degrees east.
func twoIslands(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	coords := [][2]float64{{0, 0}, {0, 0.1}, {0.1, 0}, {0, 2}, {0, 2.1}}
	for i, c := range coords {
		_, err := g.AddVertex(string(rune('a'+i)), c[0], c[1])
		require.NoError(t, err)
	}
	for _, e := range [][2]Index{{0, 1}, {1, 2}, {2, 0}, {3, 4}} {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestGraphBasics(t *testing.T) {
	g := twoIslands(t)

	_, err := g.AddVertex("a", 1, 1)
	assert.ErrorIs(t, err, ErrDuplicateGeoID)
	assert.ErrorIs(t, g.AddEdge(0, 99), ErrVertexNotFound)

	require.NoError(t, g.AddEdge(1, 0))
	require.NoError(t, g.AddEdge(2, 2))
	assert.Equal(t, 4, g.NumberOfEdges())
	assert.Equal(t, []Index{1, 2}, g.GetNeighbors(0))
	assert.True(t, g.HasEdge(1, 0))
	assert.False(t, g.HasEdge(0, 3))

	u, ok := g.GetVertexByGeoID("d")
	require.True(t, ok)
	assert.Equal(t, Index(3), u)

	g.SetAttribute(0, "population", 10)
	g.SetAttribute(4, "population", 5)
	assert.Equal(t, 15.0, g.TotalAttribute("population"))
	_, ok = g.LookupAttribute(1, "population")
	assert.False(t, ok)

	g.SetList(2, "substations", []string{"s1", "s2"})
	g.SetListCountAttribute("substations", "substation_count")
	assert.Equal(t, 2.0, g.GetAttribute(2, "substation_count"))
	assert.Equal(t, 0.0, g.GetAttribute(0, "substation_count"))
}

func TestConnectedComponents(t *testing.T) {
	g := twoIslands(t)
	assert.Equal(t, [][]Index{{0, 1, 2}, {3, 4}}, g.ConnectedComponents())
	assert.False(t, g.IsConnected())
	assert.True(t, NewGraph().IsConnected())

	assert.Equal(t, []int{0, 1, 1, -1, -1}, g.HopDistances(0))
	assert.Equal(t, []int{-1, -1, -1, 1, 0}, g.HopDistances(4))
}

func TestRepairIslands(t *testing.T) {
	g := twoIslands(t)
	added := g.RepairIslands(zap.NewNop())

	// vertex 3 at lon 2 is the closest island vertex to the mainland vertex 1 at lon 0.1
	assert.Equal(t, []Edge{NewEdge(3, 1)}, added)
	assert.True(t, g.IsConnected())
	assert.Empty(t, g.RepairIslands(zap.NewNop()))
}

func TestGraphEncodeDecode(t *testing.T) {
	g := twoIslands(t)
	g.SetAttribute(0, "population", 1200)
	g.SetAttribute(0, "class", 4)
	g.SetLabel(1, "county", "Kings")
	g.SetList(2, "substations", []string{"s1", "s2"})

	var buf bytes.Buffer
	require.NoError(t, g.Encode(&buf))
	got, err := DecodeGraph(&buf)
	require.NoError(t, err)

	assert.Equal(t, g.NumberOfVertices(), got.NumberOfVertices())
	assert.Equal(t, g.GetEdges(), got.GetEdges())
	assert.Equal(t, 1200.0, got.GetAttribute(0, "population"))
	assert.Equal(t, 4.0, got.GetAttribute(0, "class"))
	assert.Equal(t, "Kings", got.GetLabel(1, "county"))
	assert.Equal(t, []string{"s1", "s2"}, got.GetList(2, "substations"))
	lat, lon := got.GetVertexCoordinates(4)
	assert.Equal(t, 0.0, lat)
	assert.Equal(t, 2.1, lon)

	filename := filepath.Join(t.TempDir(), "tracts.graph")
	require.NoError(t, g.WriteGraph(filename))
	fromFile, err := ReadGraph(filename)
	require.NoError(t, err)
	assert.Equal(t, g.GetEdges(), fromFile.GetEdges())
	assert.Equal(t, "e", fromFile.GetVertex(4).GetGeoID())
}

func TestDecodeGraphErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "bad header", input: "2\n"},
		{name: "missing vertex", input: "2 0\n0\ta\t0\t0\t-\t-\t-\n"},
		{name: "wrong column count", input: "1 0\n0\ta\t0\t0\n"},
		{name: "id out of order", input: "1 0\n3\ta\t0\t0\t-\t-\t-\n"},
		{name: "bad attribute", input: "1 0\n0\ta\t0\t0\tpop=x\t-\t-\n"},
		{name: "bad edge", input: "1 1\n0\ta\t0\t0\t-\t-\t-\n0 x\n"},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGraph(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, util.ErrBadParamInput)
		})
	}

	_, err := ReadGraph(filepath.Join(t.TempDir(), "missing.graph"))
	assert.ErrorIs(t, err, util.ErrIO)
}

func TestVoteAttributes(t *testing.T) {
	g := NewGraph()
	for i, class := range []float64{4, 1} {
		u, err := g.AddVertex(string(rune('a'+i)), 0, float64(i))
		require.NoError(t, err)
		g.SetAttribute(u, "population", 100)
		g.SetAttribute(u, "class", class)
	}

	g.ClassifyMinority("class", 3, "minority")
	g.SynthesizeVotes("population", "minority", 0.2, "min_votes", "maj_votes")
	g.MaskAttribute("maj_votes", "minority", "group_maj_votes")

	assert.Equal(t, 1.0, g.GetAttribute(0, "minority"))
	assert.Equal(t, 0.0, g.GetAttribute(1, "minority"))
	assert.Equal(t, 100.0, g.GetAttribute(0, "min_votes"))
	assert.Equal(t, 0.0, g.GetAttribute(0, "maj_votes"))
	assert.InDelta(t, 20, g.GetAttribute(1, "min_votes"), 1e-9)
	assert.InDelta(t, 80, g.GetAttribute(1, "maj_votes"), 1e-9)
	assert.Equal(t, 0.0, g.GetAttribute(0, "group_maj_votes"))
	assert.Equal(t, 0.0, g.GetAttribute(1, "group_maj_votes"))
}
