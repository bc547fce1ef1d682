package search

import (
	"context"
	"fmt"
	"math"

	"github.com/lintang-b-s/Districtx/pkg/util"
	"go.uber.org/zap"
)

type idaRun[S any] struct {
	ctx       context.Context
	expand    ExpandFunc[S]
	isGoal    GoalFunc[S]
	heuristic HeuristicFunc[S]
	hasher    Hasher[S]
	cfg       *config
	stats     Stats

	path   []S
	hashes []uint64
}

/*
IterativeDeepening. IDA*: repeated depth first searches bounded by f = g + h, with g the number of steps
from root. after a pass that found no goal the bound is raised to the smallest f that exceeded it.
states already on the current path are not expanded again.

the search returns ErrNotFound when a pass exceeded no bound (the reachable space is finite and has no
goal) and ErrBoundExceeded when the next bound would exceed WithMaxBound.
*/
func IterativeDeepening[S any](ctx context.Context, root S, expand ExpandFunc[S], isGoal GoalFunc[S],
	heuristic HeuristicFunc[S], hasher Hasher[S], opts ...Option) (Result[S], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	run := &idaRun[S]{
		ctx:       ctx,
		expand:    expand,
		isGoal:    isGoal,
		heuristic: heuristic,
		hasher:    hasher,
		cfg:       cfg,
		path:      []S{root},
		hashes:    []uint64{hasher.Hash(root)},
	}

	bound, err := heuristic(root)
	if err != nil {
		return Result[S]{}, err
	}

	for {
		run.stats.Iterations++
		cfg.log.Debug("iterative deepening pass", zap.Int("iteration", run.stats.Iterations),
			zap.Float64("bound", bound))

		next, found, err := run.dfs(0, bound)
		if err != nil {
			return Result[S]{Stats: run.stats}, err
		}
		if found {
			run.stats.Reason = ReasonGoal
			path := append([]S(nil), run.path...)
			return Result[S]{
				State: path[len(path)-1],
				Score: float64(len(path) - 1),
				Depth: len(path) - 1,
				Path:  path,
				Stats: run.stats,
			}, nil
		}
		if math.IsInf(next, 1) {
			run.stats.Reason = ReasonExhausted
			return Result[S]{Stats: run.stats}, ErrNotFound
		}
		if cfg.maxBound >= 0 && next > cfg.maxBound {
			run.stats.Reason = ReasonDepthLimit
			return Result[S]{Stats: run.stats}, fmt.Errorf("%w: next bound %v > %v", ErrBoundExceeded, next, cfg.maxBound)
		}
		bound = next
	}
}

// dfs returns the smallest f that exceeded bound below the last state of the path, or found=true with the
// goal at the end of the path.
func (r *idaRun[S]) dfs(g int, bound float64) (float64, bool, error) {
	if util.StopConcurrentOperation(r.ctx) {
		return 0, false, r.ctx.Err()
	}
	state := r.path[len(r.path)-1]

	h, err := r.heuristic(state)
	if err != nil {
		return 0, false, err
	}
	f := float64(g) + h
	if f > bound {
		return f, false, nil
	}

	goal, err := r.isGoal(state)
	if err != nil {
		return 0, false, err
	}
	if goal {
		return f, true, nil
	}

	children, err := r.expand(r.ctx, state)
	if err != nil {
		return 0, false, fmt.Errorf("expanding state at depth %d: %w", g, err)
	}
	r.stats.Expansions++
	r.stats.Generated += len(children)
	r.stats.MaxDepth = max(r.stats.MaxDepth, g)
	if r.cfg.metrics != nil {
		r.cfg.metrics.Expansions.Inc()
		r.cfg.metrics.Successors.Add(float64(len(children)))
		r.cfg.metrics.Depth.Set(float64(g))
	}
	r.cfg.progress(r.stats)

	minimum := math.Inf(1)
	for _, child := range children {
		if r.onPath(child) {
			r.stats.Duplicates++
			continue
		}
		r.path = append(r.path, child)
		r.hashes = append(r.hashes, r.hasher.Hash(child))

		t, found, err := r.dfs(g+1, bound)
		if err != nil || found {
			return t, found, err
		}
		minimum = math.Min(minimum, t)

		r.path = r.path[:len(r.path)-1]
		r.hashes = r.hashes[:len(r.hashes)-1]
	}
	return minimum, false, nil
}

func (r *idaRun[S]) onPath(s S) bool {
	key := r.hasher.Hash(s)
	for i, h := range r.hashes {
		if h != key {
			continue
		}
		if r.hasher.Equal == nil || r.hasher.Equal(s, r.path[i]) {
			return true
		}
	}
	return false
}
