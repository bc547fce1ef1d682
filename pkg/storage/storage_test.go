package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	cfg := InMemoryConfig()
	cfg.Logger = zap.NewNop()
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, util.ErrBadParamInput)
}

func TestOpenPersistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	ctx := context.Background()
	want := map[da.Index]partition.DistrictID{0: 3, 1: 3, 2: 5}

	db, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, NewAssignmentCache(db, "territories", zap.NewNop()).Save(ctx, want))
	require.NoError(t, db.Close())

	db, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer db.Close()
	got, ok, err := NewAssignmentCache(db, "territories", zap.NewNop()).Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestAssignmentCache(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cache := NewAssignmentCache(db, "territories", zap.NewNop())

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache")

	first := map[da.Index]partition.DistrictID{0: 1, 1: 1, 7: -2, 300: 1 << 40}
	require.NoError(t, cache.Save(ctx, first))
	got, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, got)

	// save replaces, nodes of the old assignment do not survive
	second := map[da.Index]partition.DistrictID{2: 4}
	require.NoError(t, cache.Save(ctx, second))
	got, ok, err = cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)

	// namespaces are independent
	other := NewAssignmentCache(db, "territories-v2", zap.NewNop())
	_, ok, err = other.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Clear())
	_, ok, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignmentCacheCancelled(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache := NewAssignmentCache(db, "ns", zap.NewNop())
	err := cache.Save(ctx, map[da.Index]partition.DistrictID{0: 1})
	assert.ErrorIs(t, err, context.Canceled)

	_, ok, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "an interrupted save is not visible")
}

func pathGraph(t *testing.T, n int) *da.Graph {
	t.Helper()
	g := da.NewGraph()
	for i := 0; i < n; i++ {
		_, err := g.AddVertex(fmt.Sprintf("36%04d", i), 0, float64(i))
		require.NoError(t, err)
		if i > 0 {
			require.NoError(t, g.AddEdge(da.Index(i-1), da.Index(i)))
		}
	}
	return g
}

func TestPartitionFileRoundTrip(t *testing.T) {
	g := pathGraph(t, 5)
	mapping := map[da.Index]partition.DistrictID{0: 2, 1: 2, 2: 9, 3: 9, 4: 9}
	p, err := partition.Assign(g, nil, mapping, partition.AssignOptions{})
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "partition.bz2")
	require.NoError(t, WritePartition(filename, p))

	got, err := ReadPartition(filename, g)
	require.NoError(t, err)
	assert.Equal(t, mapping, got)

	var buf bytes.Buffer
	require.NoError(t, EncodePartition(&buf, p))
	assert.Equal(t, "360000\t2\n360001\t2\n360002\t9\n360003\t9\n360004\t9\n", buf.String())
}

func TestDecodePartitionErrors(t *testing.T) {
	g := pathGraph(t, 2)
	testCases := []struct {
		name  string
		input string
	}{
		{name: "unknown geoid", input: "999999\t1\n"},
		{name: "missing column", input: "360000\n"},
		{name: "bad district", input: "360000\tfour\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePartition(strings.NewReader(tt.input), g)
			assert.ErrorIs(t, err, util.ErrBadParamInput)
		})
	}
}

func TestReadPartitionMissingFile(t *testing.T) {
	_, err := ReadPartition(filepath.Join(t.TempDir(), "nope.bz2"), pathGraph(t, 1))
	assert.ErrorIs(t, err, util.ErrIO)
}
