package search

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lintang-b-s/Districtx/pkg/util"
	"go.uber.org/zap"
)

type frontierEntry[S any] struct {
	state  S
	score  float64
	depth  int
	parent *frontierEntry[S]
}

func (e *frontierEntry[S]) path() []S {
	path := make([]S, 0, e.depth+1)
	for cur := e; cur != nil; cur = cur.parent {
		path = append(path, cur.state)
	}
	return util.ReverseG(path)
}

/*
HillClimb. best-first local search that always explores the best looking child next.

the exploration list starts with root at depth 0. each step pops the front entry and
 1. skips it if an equal state was already visited,
 2. returns it if isGoal holds,
 3. stops if its depth exceeds the max depth,
 4. otherwise pushes its children, sorted by descending score (ties keep the successor order),
    to the front of the list.

the search stops when the successor function returns no candidates for the popped state. on every stop
other than the goal, the best scoring visited state is returned. errors from successors, isGoal or
score are returned unchanged.
*/
func HillClimb[S any](ctx context.Context, root S, successors SuccessorFunc[S], isGoal GoalFunc[S],
	score ScoreFunc[S], hasher Hasher[S], opts ...Option) (Result[S], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	rootScore, err := score(root)
	if err != nil {
		return Result[S]{}, err
	}

	stats := Stats{BestScore: rootScore}
	visited := newVisitedSet(hasher)
	frontier := list.New()
	rootEntry := &frontierEntry[S]{state: root, score: rootScore}
	frontier.PushBack(rootEntry)
	best := rootEntry

	finish := func(e *frontierEntry[S], reason Reason) Result[S] {
		stats.Reason = reason
		stats.Frontier = frontier.Len()
		stats.BestScore = best.score
		cfg.log.Info("hill climbing finished",
			zap.String("reason", reason.String()),
			zap.Int("expansions", stats.Expansions),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("depth", e.depth),
			zap.Float64("score", e.score))
		return Result[S]{State: e.state, Score: e.score, Depth: e.depth, Path: e.path(), Stats: stats}
	}

	for frontier.Len() > 0 {
		if util.StopConcurrentOperation(ctx) {
			return finish(best, ReasonNone), ctx.Err()
		}

		cur := frontier.Remove(frontier.Front()).(*frontierEntry[S])
		if !visited.insert(cur.state) {
			stats.Duplicates++
			if cfg.metrics != nil {
				cfg.metrics.Duplicates.Inc()
			}
			continue
		}
		if cur.score > best.score {
			best = cur
			if cfg.metrics != nil {
				cfg.metrics.BestScore.Set(cur.score)
			}
		}

		goal, err := isGoal(cur.state)
		if err != nil {
			return finish(best, ReasonNone), err
		}
		if goal {
			best = cur
			return finish(cur, ReasonGoal), nil
		}

		if cfg.maxDepth >= 0 && cur.depth > cfg.maxDepth {
			return finish(best, ReasonDepthLimit), nil
		}
		stats.MaxDepth = max(stats.MaxDepth, cur.depth)

		start := time.Now()
		children, err := successors(ctx, cur.state)
		if err != nil {
			return finish(best, ReasonNone), fmt.Errorf("expanding state at depth %d: %w", cur.depth, err)
		}
		stats.Expansions++
		stats.Generated += len(children)
		if cfg.metrics != nil {
			cfg.metrics.SuccessorLatency.Observe(time.Since(start).Seconds())
			cfg.metrics.Expansions.Inc()
			cfg.metrics.Successors.Add(float64(len(children)))
			cfg.metrics.Depth.Set(float64(cur.depth))
		}

		if len(children) == 0 {
			return finish(best, ReasonExhausted), nil
		}

		sort.SliceStable(children, func(i, j int) bool {
			return children[i].Score > children[j].Score
		})
		for i := len(children) - 1; i >= 0; i-- {
			frontier.PushFront(&frontierEntry[S]{
				state:  children[i].State,
				score:  children[i].Score,
				depth:  cur.depth + 1,
				parent: cur,
			})
		}

		stats.Frontier = frontier.Len()
		stats.BestScore = best.score
		if cfg.metrics != nil {
			cfg.metrics.Frontier.Set(float64(frontier.Len()))
		}
		cfg.progress(stats)
	}

	return finish(best, ReasonFrontierEmpty), nil
}
