package neighbor

import (
	"context"
	"sort"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/search"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ObjectiveFunc scores a partition from its updater values, higher is better.
type ObjectiveFunc func(p *partition.Partition) (float64, error)

// Move. flip of Node into district To.
type Move struct {
	Node da.Index
	To   partition.DistrictID
}

// Adapter. turns the cut-edge frontier of a partition into scored successor partitions.
type Adapter struct {
	objective   ObjectiveFunc
	constraints []Constraint
	workers     int
	log         *zap.Logger
}

type Option func(*Adapter)

func WithConstraints(cs ...Constraint) Option {
	return func(a *Adapter) {
		a.constraints = append(a.constraints, cs...)
	}
}

// WithWorkers scores successors on up to n goroutines. the result order does not depend on n.
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

func NewAdapter(objective ObjectiveFunc, opts ...Option) *Adapter {
	a := &Adapter{
		objective: objective,
		workers:   1,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

/*
Candidates. for every cut edge (u, v), in (u, v) order, the flips u -> district(v) and v -> district(u).
a node bordering several cut edges into the same district yields that flip once, at its first position.
flips that would leave a district empty are skipped since the set of districts is fixed.
*/
func (a *Adapter) Candidates(p *partition.Partition) []Move {
	cut := p.CutEdges()
	moves := make([]Move, 0, 2*len(cut))
	seen := make(map[Move]struct{}, 2*len(cut))
	add := func(node, other da.Index) {
		m := Move{Node: node, To: p.DistrictOf(other)}
		if _, dup := seen[m]; dup {
			return
		}
		seen[m] = struct{}{}
		if p.NodeCount(p.DistrictOf(node)) <= 1 {
			return
		}
		moves = append(moves, m)
	}
	for _, e := range cut {
		add(e.GetU(), e.GetV())
		add(e.GetV(), e.GetU())
	}
	return moves
}

type evaluated struct {
	child *partition.Partition
	score float64
	ok    bool
}

// Successors flips every candidate, drops those rejected by a constraint and scores the rest. the result
// is sorted by descending score, equal scores keep candidate order. an empty result means p cannot be
// perturbed further. a cancelled ctx stops the remaining flips and its error is returned.
func (a *Adapter) Successors(ctx context.Context, p *partition.Partition) ([]search.Scored[*partition.Partition], error) {
	moves := a.Candidates(p)
	results := make([]evaluated, len(moves))

	if a.workers <= 1 {
		for i, m := range moves {
			if util.StopConcurrentOperation(ctx) {
				return nil, ctx.Err()
			}
			r, err := a.evaluate(p, m)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for i, m := range moves {
			i, m := i, m
			g.Go(func() error {
				if util.StopConcurrentOperation(gctx) {
					return gctx.Err()
				}
				r, err := a.evaluate(p, m)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := make([]search.Scored[*partition.Partition], 0, len(results))
	for _, r := range results {
		if r.ok {
			out = append(out, search.Scored[*partition.Partition]{State: r.child, Score: r.score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if len(out) < len(moves) {
		a.log.Debug("flips rejected by constraints",
			zap.Int("candidates", len(moves)),
			zap.Int("accepted", len(out)))
	}
	return out, nil
}

// Expand. unscored successors, for iterative deepening.
func (a *Adapter) Expand(ctx context.Context, p *partition.Partition) ([]*partition.Partition, error) {
	scored, err := a.Successors(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]*partition.Partition, len(scored))
	for i, s := range scored {
		out[i] = s.State
	}
	return out, nil
}

func (a *Adapter) evaluate(p *partition.Partition, m Move) (evaluated, error) {
	child, err := p.Flip(m.Node, m.To)
	if err != nil {
		// candidates come from the cut-edge set, so this is a bookkeeping defect
		return evaluated{}, err
	}
	for _, c := range a.constraints {
		if !c.Allow(p, child) {
			return evaluated{}, nil
		}
	}
	score, err := a.objective(child)
	if err != nil {
		return evaluated{}, err
	}
	return evaluated{child: child, score: score, ok: true}, nil
}

func (a *Adapter) Score(p *partition.Partition) (float64, error) {
	return a.objective(p)
}

// Hasher. xxhash of the assignment with a full assignment comparison on collisions.
func (a *Adapter) Hasher() search.Hasher[*partition.Partition] {
	return search.Hasher[*partition.Partition]{
		Hash: func(p *partition.Partition) uint64 {
			return p.Hash()
		},
		Equal: func(x, y *partition.Partition) bool {
			return x.Equal(y)
		},
	}
}
