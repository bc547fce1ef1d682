package partitioner

import (
	"fmt"
	"sort"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/neighbor"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"go.uber.org/zap"
)

type GreedyOptions struct {
	Districts int
	// MinSeedDistance. minimum number of tracts on a shortest path between two seeds, endpoints included.
	MinSeedDistance        int
	ClassAttribute         string
	MinorityVotesAttribute string
	MajorityVotesAttribute string
}

type greedyDistrict struct {
	seed          da.Index
	members       []da.Index
	minorityVotes float64
	majorityVotes float64
	saturated     bool
}

// SeededGreedy. picks seeds in descending class order that are far enough apart, then grows the districts
// round-robin, each taking the unclaimed neighbour closest to its seed that best evens out its vote totals.
type SeededGreedy struct {
	graph     *da.Graph
	opts      GreedyOptions
	distances map[da.Index][]int // hop distances from every seed, owned by this run
	logger    *zap.Logger
}

func NewSeededGreedy(graph *da.Graph, opts GreedyOptions, logger *zap.Logger) *SeededGreedy {
	return &SeededGreedy{
		graph:     graph,
		opts:      opts,
		distances: make(map[da.Index][]int),
		logger:    logger,
	}
}

// distance. tracts on a shortest path from seed to u, 0 when unreachable.
func (sg *SeededGreedy) distance(seed, u da.Index) int {
	dist, ok := sg.distances[seed]
	if !ok {
		dist = sg.graph.HopDistances(seed)
		sg.distances[seed] = dist
	}
	if dist[u] < 0 {
		return 0
	}
	return dist[u] + 1
}

func (sg *SeededGreedy) farEnough(seed, u da.Index) bool {
	dist := sg.distance(seed, u)
	return dist == 0 || dist >= sg.opts.MinSeedDistance
}

func (sg *SeededGreedy) SelectSeeds() ([]da.Index, error) {
	n := sg.graph.NumberOfVertices()
	if sg.opts.Districts < 1 || n < sg.opts.Districts {
		return nil, fmt.Errorf("%w: %d nodes, %d districts", ErrNotEnoughNodes, n, sg.opts.Districts)
	}

	nodeIds := make([]da.Index, n)
	for i := range nodeIds {
		nodeIds[i] = da.Index(i)
	}
	sort.SliceStable(nodeIds, func(i, j int) bool {
		return sg.graph.GetAttribute(nodeIds[i], sg.opts.ClassAttribute) >
			sg.graph.GetAttribute(nodeIds[j], sg.opts.ClassAttribute)
	})

	seeds := []da.Index{nodeIds[0]}
	for _, u := range nodeIds[1:] {
		if len(seeds) == sg.opts.Districts {
			break
		}
		ok := true
		for _, s := range seeds {
			if !sg.farEnough(s, u) {
				ok = false
				break
			}
		}
		if ok {
			seeds = append(seeds, u)
		}
	}

	if len(seeds) < sg.opts.Districts {
		return nil, fmt.Errorf("%w: found %d of %d seeds %d tracts apart", ErrNotEnoughSeeds,
			len(seeds), sg.opts.Districts, sg.opts.MinSeedDistance)
	}
	sg.logger.Info("selected seeds", zap.Int("seeds", len(seeds)), zap.Int("min_seed_distance", sg.opts.MinSeedDistance))
	return seeds, nil
}

func (sg *SeededGreedy) votes(u da.Index) (float64, float64) {
	return sg.graph.GetAttribute(u, sg.opts.MinorityVotesAttribute), sg.graph.GetAttribute(u, sg.opts.MajorityVotesAttribute)
}

// candidates returns the unclaimed neighbours of the district at the minimum distance from its seed,
// ascending by id.
func (sg *SeededGreedy) candidates(d *greedyDistrict, owner []int) []da.Index {
	best := -1
	var cands []da.Index
	seen := make(map[da.Index]struct{})
	for _, u := range d.members {
		for _, v := range sg.graph.GetNeighbors(u) {
			if owner[v] != INVALID_PARTITION_ID {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			dist := sg.distance(d.seed, v)
			switch {
			case best < 0 || dist < best:
				best = dist
				cands = append(cands[:0], v)
			case dist == best:
				cands = append(cands, v)
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i] < cands[j] })
	return cands
}

// Grow assigns every node reachable from a seed. districts are numbered in seed order.
func (sg *SeededGreedy) Grow(seeds []da.Index) (map[da.Index]partition.DistrictID, error) {
	n := sg.graph.NumberOfVertices()
	owner := make([]int, n)
	for i := range owner {
		owner[i] = INVALID_PARTITION_ID
	}

	districts := make([]*greedyDistrict, len(seeds))
	for i, s := range seeds {
		m, M := sg.votes(s)
		districts[i] = &greedyDistrict{seed: s, members: []da.Index{s}, minorityVotes: m, majorityVotes: M}
		owner[s] = i
	}

	unclaimed := n - len(seeds)
	for unclaimed > 0 {
		progress := false
		for i, d := range districts {
			if d.saturated {
				continue
			}
			cands := sg.candidates(d, owner)
			if len(cands) == 0 {
				d.saturated = true
				continue
			}

			bestCand := cands[0]
			bestScore := -1.0
			for _, c := range cands {
				m, M := sg.votes(c)
				score := neighbor.DistrictBalance(d.minorityVotes+m, d.majorityVotes+M)
				if score > bestScore {
					bestScore = score
					bestCand = c
				}
			}

			m, M := sg.votes(bestCand)
			d.members = append(d.members, bestCand)
			d.minorityVotes += m
			d.majorityVotes += M
			owner[bestCand] = i
			unclaimed--
			progress = true
			if unclaimed == 0 {
				break
			}
		}
		if !progress {
			return nil, fmt.Errorf("%w: %d nodes unreachable from every seed", da.ErrGraphDisconnected, unclaimed)
		}
	}

	assignment := make(map[da.Index]partition.DistrictID, n)
	for u, d := range owner {
		assignment[da.Index(u)] = partition.DistrictID(d)
	}
	sg.logger.Info("grew districts", zap.Int("districts", len(districts)))
	return assignment, nil
}

func (sg *SeededGreedy) Partition() (map[da.Index]partition.DistrictID, error) {
	seeds, err := sg.SelectSeeds()
	if err != nil {
		return nil, err
	}
	return sg.Grow(seeds)
}
