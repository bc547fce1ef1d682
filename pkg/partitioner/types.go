package partitioner

import (
	"errors"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

const (
	INERTIAL_FLOW_ITERATION = 4
	// BALANCE_SLACK. sources cover (1-slack) of the population share of side one, sinks (1-slack) of side
	// two; the min cut is searched in the band between them.
	BALANCE_SLACK = 0.3
	INVALID_LEVEL = -1
)

var (
	ErrNotEnoughNodes  = errors.New("not enough nodes to form the requested number of districts")
	ErrNotEnoughSeeds  = errors.New("not enough seeds at the minimum distance")
	ErrMissingDistrict = errors.New("node has no district attribute")
	ErrNoRegions       = errors.New("no regions to assign units to")
)

type MinCut struct {
	flags                  []bool // true if the vertex is reachable from source in residual graph (partition one)
	numNodesInPartitionTwo int
	minCut                 int
	weightOne              float64 // population on the source side
}

func NewMinCut(numberOfVertices int) *MinCut {
	return &MinCut{
		flags: make([]bool, numberOfVertices),
	}
}

func (mc *MinCut) SetFlag(u da.Index, flag bool) {
	mc.flags[u] = flag
}

func (mc *MinCut) GetFlag(u da.Index) bool {
	return mc.flags[u]
}

func (mc *MinCut) GetNumNodesInPartitionTwo() int {
	return mc.numNodesInPartitionTwo
}

func (mc *MinCut) GetNumNodesInPartitionOne() int {
	return len(mc.flags) - mc.numNodesInPartitionTwo
}

func (mc *MinCut) incrementNumNodesInPartitionTwo() {
	mc.numNodesInPartitionTwo++
}

func (mc *MinCut) GetMinCut() int {
	return mc.minCut
}

func (mc *MinCut) setMinCut(maxflow int) {
	mc.minCut = maxflow
}

func (mc *MinCut) GetWeightOne() float64 {
	return mc.weightOne
}
