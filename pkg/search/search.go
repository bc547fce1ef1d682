package search

import (
	"context"
	"errors"

	"github.com/lintang-b-s/Districtx/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("search space exhausted without reaching a goal")
	ErrBoundExceeded = errors.New("iterative deepening bound exceeded")
)

// Scored. a successor state with the score the objective assigned to it.
type Scored[S any] struct {
	State S
	Score float64
}

// SuccessorFunc returns the children of s. hill climbing sorts them itself, so any order is fine.
type SuccessorFunc[S any] func(ctx context.Context, s S) ([]Scored[S], error)

// ExpandFunc returns the children of s for iterative deepening, every edge costs 1.
type ExpandFunc[S any] func(ctx context.Context, s S) ([]S, error)

type GoalFunc[S any] func(s S) (bool, error)

type ScoreFunc[S any] func(s S) (float64, error)

// HeuristicFunc estimates the number of steps from s to a goal. it must never overestimate.
type HeuristicFunc[S any] func(s S) (float64, error)

// Hasher. structural key of a state plus an equality check for states whose keys collide.
// a nil Equal treats equal keys as equal states.
type Hasher[S any] struct {
	Hash  func(s S) uint64
	Equal func(a, b S) bool
}

type Reason int

const (
	ReasonNone Reason = iota
	// ReasonGoal. the goal predicate held.
	ReasonGoal
	// ReasonExhausted. the successor function returned no candidates (local optimum).
	ReasonExhausted
	// ReasonDepthLimit. the popped state was deeper than the max depth.
	ReasonDepthLimit
	// ReasonFrontierEmpty. every queued state was a duplicate.
	ReasonFrontierEmpty
)

func (r Reason) String() string {
	switch r {
	case ReasonGoal:
		return "goal"
	case ReasonExhausted:
		return "exhausted"
	case ReasonDepthLimit:
		return "depth-limit"
	case ReasonFrontierEmpty:
		return "frontier-empty"
	default:
		return "none"
	}
}

type Stats struct {
	Expansions int
	Duplicates int
	Generated  int
	MaxDepth   int
	Frontier   int
	Iterations int
	BestScore  float64
	Reason     Reason
}

// Result. the state the search stopped at, its score, and the states from the root to it.
type Result[S any] struct {
	State S
	Score float64
	Depth int
	Path  []S
	Stats Stats
}

type config struct {
	maxDepth         int
	maxBound         float64
	log              *zap.Logger
	progressInterval int
	observer         func(Stats)
	metrics          *metrics.SearchMetrics
}

func defaultConfig() *config {
	return &config{
		maxDepth:         -1,
		maxBound:         -1,
		log:              zap.NewNop(),
		progressInterval: 1000,
	}
}

type Option func(*config)

// WithMaxDepth stops hill climbing once a popped state is deeper than d. d < 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(c *config) {
		c.maxDepth = d
	}
}

// WithMaxBound stops iterative deepening with ErrBoundExceeded once the f threshold would exceed b.
// b < 0 means unlimited.
func WithMaxBound(b float64) Option {
	return func(c *config) {
		c.maxBound = b
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithProgressInterval logs and notifies the observer every n expansions.
func WithProgressInterval(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.progressInterval = n
		}
	}
}

func WithObserver(fn func(Stats)) Option {
	return func(c *config) {
		c.observer = fn
	}
}

func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

func (c *config) progress(st Stats) {
	if st.Expansions == 0 || st.Expansions%c.progressInterval != 0 {
		return
	}
	c.log.Info("search progress",
		zap.Int("expansions", st.Expansions),
		zap.Int("frontier", st.Frontier),
		zap.Int("depth", st.MaxDepth),
		zap.Float64("best_score", st.BestScore))
	if c.observer != nil {
		c.observer(st)
	}
}

// visitedSet. states already expanded, bucketed by hash.
type visitedSet[S any] struct {
	hasher  Hasher[S]
	buckets map[uint64][]S
}

func newVisitedSet[S any](h Hasher[S]) *visitedSet[S] {
	return &visitedSet[S]{hasher: h, buckets: make(map[uint64][]S)}
}

// insert adds s and returns false if an equal state was already present.
func (vs *visitedSet[S]) insert(s S) bool {
	key := vs.hasher.Hash(s)
	bucket := vs.buckets[key]
	if len(bucket) > 0 && vs.hasher.Equal == nil {
		return false
	}
	for _, other := range bucket {
		if vs.hasher.Equal(s, other) {
			return false
		}
	}
	vs.buckets[key] = append(bucket, s)
	return true
}
