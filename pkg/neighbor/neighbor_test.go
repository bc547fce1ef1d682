package neighbor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// votingGrid builds a rows x cols grid of units with population 100. units in column 0 have class 4,
// the rest class 1. votes are synthesized with 20% crossover and minority cutoff 3.
func votingGrid(t *testing.T, rows, cols int) *da.Graph {
	t.Helper()
	g := da.NewGraph()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u, err := g.AddVertex(fmt.Sprintf("%d-%d", r, c), float64(r), float64(c))
			require.NoError(t, err)
			g.SetAttribute(u, "population", 100)
			class := 1.0
			if c == 0 {
				class = 4
			}
			g.SetAttribute(u, "class", class)
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u := da.Index(r*cols + c)
			if c+1 < cols {
				require.NoError(t, g.AddEdge(u, u+1))
			}
			if r+1 < rows {
				require.NoError(t, g.AddEdge(u, u+da.Index(cols)))
			}
		}
	}
	PrepareVotes(g, DefaultVoteAttributes(), 3, 0.2, true)
	return g
}

func halves(rows, cols int) map[da.Index]partition.DistrictID {
	m := make(map[da.Index]partition.DistrictID, rows*cols)
	for u := 0; u < rows*cols; u++ {
		d := partition.DistrictID(1)
		if u%cols >= cols/2 {
			d = 2
		}
		m[da.Index(u)] = d
	}
	return m
}

func crossoverPartition(t *testing.T, g *da.Graph, mapping map[da.Index]partition.DistrictID) *partition.Partition {
	t.Helper()
	reg, err := partition.NewRegistry(CrossoverUpdaters(DefaultVoteAttributes())...)
	require.NoError(t, err)
	p, err := partition.Assign(g, reg, mapping, partition.AssignOptions{})
	require.NoError(t, err)
	return p
}

func TestCandidatesLegality(t *testing.T) {
	g := votingGrid(t, 4, 4)
	p := crossoverPartition(t, g, halves(4, 4))
	a := NewAdapter(CrossoverObjective(UpdaterMinorityVotes, UpdaterMajorityVotes))

	moves := a.Candidates(p)
	require.NotEmpty(t, moves)
	seen := make(map[Move]bool)
	for _, m := range moves {
		assert.False(t, seen[m], "duplicate move %v", m)
		seen[m] = true
		assert.NotEqual(t, p.DistrictOf(m.Node), m.To)

		legal := false
		for _, e := range p.CutEdges() {
			if (e.GetU() == m.Node && p.DistrictOf(e.GetV()) == m.To) ||
				(e.GetV() == m.Node && p.DistrictOf(e.GetU()) == m.To) {
				legal = true
			}
		}
		assert.True(t, legal, "move %v is not backed by a cut edge", m)
	}
	// 4 cut edges, both directions
	assert.Len(t, moves, 8)
}

func TestCandidatesKeepDistrictsNonEmpty(t *testing.T) {
	g := votingGrid(t, 1, 3)
	p := crossoverPartition(t, g, map[da.Index]partition.DistrictID{0: 1, 1: 2, 2: 2})
	a := NewAdapter(CrossoverObjective(UpdaterMinorityVotes, UpdaterMajorityVotes))
	assert.Equal(t, []Move{{Node: 1, To: 1}}, a.Candidates(p))
}

func TestSuccessors(t *testing.T) {
	g := votingGrid(t, 4, 4)
	p := crossoverPartition(t, g, halves(4, 4))
	objective := BalanceObjective(UpdaterMinorityVotes, UpdaterMajorityVotes)

	sequential, err := NewAdapter(objective).Successors(context.Background(), p)
	require.NoError(t, err)
	parallel, err := NewAdapter(objective, WithWorkers(4)).Successors(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, sequential, 8)
	require.Len(t, parallel, len(sequential))
	for i := range sequential {
		if i > 0 {
			assert.GreaterOrEqual(t, sequential[i-1].Score, sequential[i].Score)
		}
		assert.True(t, sequential[i].State.Equal(parallel[i].State))
		assert.InDelta(t, sequential[i].Score, parallel[i].Score, 1e-12)

		node, from, to, ok := sequential[i].State.LastFlip()
		require.True(t, ok)
		assert.Equal(t, p.DistrictOf(node), from)
		assert.Equal(t, to, sequential[i].State.DistrictOf(node))

		want, err := objective(sequential[i].State)
		require.NoError(t, err)
		assert.InDelta(t, want, sequential[i].Score, 1e-12)
	}
}

func TestSuccessorsCancelled(t *testing.T) {
	g := votingGrid(t, 4, 4)
	p := crossoverPartition(t, g, halves(4, 4))
	objective := BalanceObjective(UpdaterMinorityVotes, UpdaterMajorityVotes)

	testCases := []struct {
		name    string
		workers int
	}{
		{name: "sequential", workers: 1},
		{name: "parallel", workers: 2},
	}

	for _, tt := range testCases {
		t.Run(tt.name+" before start", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			out, err := NewAdapter(objective, WithWorkers(tt.workers)).Successors(ctx, p)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, out)
		})

		t.Run(tt.name+" while scoring", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			calls := 0
			var mu sync.Mutex
			cancelling := func(q *partition.Partition) (float64, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				cancel()
				return objective(q)
			}
			out, err := NewAdapter(cancelling, WithWorkers(tt.workers)).Successors(ctx, p)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, out)
			mu.Lock()
			defer mu.Unlock()
			assert.Less(t, calls, 8)
		})
	}
}

func TestSuccessorsWithoutCutEdges(t *testing.T) {
	g := votingGrid(t, 2, 2)
	single := map[da.Index]partition.DistrictID{0: 1, 1: 1, 2: 1, 3: 1}
	p := crossoverPartition(t, g, single)
	out, err := NewAdapter(CrossoverObjective(UpdaterMinorityVotes, UpdaterMajorityVotes)).Successors(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestObjectivesRecomputeAffectedDistricts(t *testing.T) {
	// a (minority 10) | b (majority 8) - c (majority 2)
	g := da.NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddVertex(id, 0, 0)
		require.NoError(t, err)
	}
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(1, 2))
	g.SetAttribute(0, "minority_votes", 10)
	g.SetAttribute(1, "majority_votes", 8)
	g.SetAttribute(2, "majority_votes", 2)
	p := crossoverPartition(t, g, map[da.Index]partition.DistrictID{0: 1, 1: 2, 2: 2})

	crossover := CrossoverObjective(UpdaterMinorityVotes, UpdaterMajorityVotes)
	balance := BalanceObjective(UpdaterMinorityVotes, UpdaterMajorityVotes)

	before, err := crossover(p)
	require.NoError(t, err)
	assert.InDelta(t, (0.5+0)/2, before, 1e-12)
	balanceBefore, err := balance(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/11, balanceBefore, 1e-12)

	child, err := p.Flip(1, 1)
	require.NoError(t, err)
	lead1, err := child.Value(1, UpdaterLead)
	require.NoError(t, err)
	lead2, err := child.Value(2, UpdaterLead)
	require.NoError(t, err)
	assert.InDelta(t, 2, lead1.Float(), 1e-12)
	assert.InDelta(t, -2, lead2.Float(), 1e-12)

	// 10/18 is still capped at 0.5
	after, err := crossover(child)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, after, 1e-12)
	balanceAfter, err := balance(child)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, balanceAfter, 1e-12)

	// the parent is untouched
	again, err := balance(p)
	require.NoError(t, err)
	assert.InDelta(t, balanceBefore, again, 1e-12)

	// a heavier majority unit pulls the minority district under the cap
	heavy := da.NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := heavy.AddVertex(id, 0, 0)
		require.NoError(t, err)
	}
	require.NoError(t, heavy.AddEdge(0, 1))
	require.NoError(t, heavy.AddEdge(1, 2))
	heavy.SetAttribute(0, "minority_votes", 10)
	heavy.SetAttribute(1, "majority_votes", 12)
	heavy.SetAttribute(2, "majority_votes", 2)
	hp := crossoverPartition(t, heavy, map[da.Index]partition.DistrictID{0: 1, 1: 2, 2: 2})

	heavyBefore, err := crossover(hp)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, heavyBefore, 1e-12)

	heavyChild, err := hp.Flip(1, 1)
	require.NoError(t, err)
	heavyAfter, err := crossover(heavyChild)
	require.NoError(t, err)
	// district 1 is 10/22, district 2 has no minority votes
	assert.InDelta(t, (10.0/22+0)/2, heavyAfter, 1e-12)
	assert.Less(t, heavyAfter, heavyBefore)

	unchanged, err := crossover(hp)
	require.NoError(t, err)
	assert.InDelta(t, heavyBefore, unchanged, 1e-12)
}

func TestIsCrossover(t *testing.T) {
	testCases := []struct {
		name               string
		m, M, groupM, grpM float64
		want               bool
	}{
		{name: "group and district prefer minority candidate", m: 60, M: 40, groupM: 30, grpM: 0, want: true},
		{name: "district prefers majority candidate", m: 40, M: 60, groupM: 30, grpM: 0, want: false},
		{name: "tie goes to minority candidate", m: 50, M: 50, groupM: 10, grpM: 0, want: true},
		{name: "group and district prefer majority candidate", m: 20, M: 80, groupM: 1, grpM: 5, want: false},
		{name: "group prefers majority but minority candidate wins", m: 70, M: 30, groupM: 1, grpM: 5, want: false},
		{name: "group tie counts as minority preference", m: 55, M: 45, groupM: 5, grpM: 5, want: true},
		{name: "no minority votes", m: 60, M: 40, groupM: 0, grpM: 0, want: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCrossover(tt.m, tt.M, tt.groupM, tt.grpM))
		})
	}
}

func TestPrepareVotes(t *testing.T) {
	g := votingGrid(t, 1, 2)
	// node 0 is minority, node 1 gives 20% to the minority candidate
	assert.InDelta(t, 1, g.GetAttribute(0, "minority"), 1e-12)
	assert.InDelta(t, 100, g.GetAttribute(0, "minority_votes"), 1e-12)
	assert.InDelta(t, 0, g.GetAttribute(0, "majority_votes"), 1e-12)
	assert.InDelta(t, 20, g.GetAttribute(1, "minority_votes"), 1e-12)
	assert.InDelta(t, 80, g.GetAttribute(1, "majority_votes"), 1e-12)
	assert.InDelta(t, 100, g.GetAttribute(0, "group_minority_votes"), 1e-12)
	assert.InDelta(t, 0, g.GetAttribute(1, "group_minority_votes"), 1e-12)
	assert.InDelta(t, 100, g.GetAttribute(0, "minority_population"), 1e-12)
	assert.InDelta(t, 0, g.GetAttribute(1, "minority_population"), 1e-12)
}

func TestCrossoverGoal(t *testing.T) {
	// column 0 is minority: district 1 (columns 0,1) gets 400+80 vs 320, district 2 gets 160 vs 640
	g := votingGrid(t, 4, 4)
	p := crossoverPartition(t, g, halves(4, 4))

	f, err := CrossoverFraction(p, UpdaterCrossover)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-12)

	ok, err := CrossoverGoal(0.4, UpdaterCrossover)(p)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = CrossoverGoal(0.5, UpdaterCrossover)(p)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CrossoverGoal(0.5, "missing")(p)
	assert.ErrorIs(t, err, partition.ErrUnknownUpdater)
}

func TestConstraints(t *testing.T) {
	// 1x4 path 0-1-2-3 split {0,1} {2,3}
	g := votingGrid(t, 1, 4)
	p := crossoverPartition(t, g, map[da.Index]partition.DistrictID{0: 1, 1: 1, 2: 2, 3: 2})

	grow, err := p.Flip(2, 1) // {0,1,2} {3}
	require.NoError(t, err)

	// 2x3 grid, district 1 is the top row 0-1-2, moving 1 down splits it
	grid := votingGrid(t, 2, 3)
	sq := crossoverPartition(t, grid, map[da.Index]partition.DistrictID{0: 1, 1: 1, 2: 1, 3: 2, 4: 2, 5: 2})
	split, err := sq.Flip(1, 2)
	require.NoError(t, err)
	keep, err := sq.Flip(0, 2)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		constraint Constraint
		parent     *partition.Partition
		child      *partition.Partition
		want       bool
	}{
		{name: "contiguous keeps connected district", constraint: Contiguous(), parent: sq, child: keep, want: true},
		{name: "contiguous rejects split", constraint: Contiguous(), parent: sq, child: split, want: false},
		{name: "population within 50%", constraint: WithinPopulationTolerance(p, "population", 0.5), parent: p, child: grow, want: true},
		{name: "population outside 10%", constraint: WithinPopulationTolerance(p, "population", 0.1), parent: p, child: grow, want: false},
		{name: "cut edges within bound", constraint: CutEdgeUpperBound(p, 1), parent: p, child: grow, want: true},
		{name: "cut edges over bound", constraint: CutEdgeUpperBound(sq, 1), parent: sq, child: split, want: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.constraint.Allow(tt.parent, tt.child))
		})
	}

	a := NewAdapter(BalanceObjective(UpdaterMinorityVotes, UpdaterMajorityVotes),
		WithConstraints(WithinPopulationTolerance(p, "population", 0.1)))
	out, err := a.Successors(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHillClimbWithAdapter(t *testing.T) {
	g := votingGrid(t, 4, 4)
	root := crossoverPartition(t, g, halves(4, 4))
	a := NewAdapter(CrossoverObjective(UpdaterMinorityVotes, UpdaterMajorityVotes),
		WithWorkers(2), WithConstraints(Contiguous()))

	rootScore, err := a.Score(root)
	require.NoError(t, err)

	res, err := search.HillClimb(context.Background(), root, a.Successors,
		CrossoverGoal(0.9, UpdaterCrossover), a.Score, a.Hasher(), search.WithMaxDepth(20))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, rootScore)
	assert.InDelta(t, 1600, res.State.Total("population"), 1e-9)
	for _, d := range res.State.DistrictIDs() {
		assert.True(t, res.State.IsContiguous(d))
	}
	// 4 minority units cannot outvote 12 others in both districts
	assert.NotEqual(t, search.ReasonGoal, res.Stats.Reason)
	assert.NotEqual(t, search.ReasonNone, res.Stats.Reason)
}
