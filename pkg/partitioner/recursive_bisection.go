package partitioner

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"go.uber.org/zap"
)

const INVALID_PARTITION_ID = -1

type bisectionTask struct {
	graph *partitionGraph
	parts int
}

// RecursiveBisection. splits the tract graph into parts population-balanced districts. a cell that must
// become k districts is cut into floor(k/2) and ceil(k/2) districts with the population split in the same
// ratio.
type RecursiveBisection struct {
	originalGraph  *da.Graph
	parts          int
	weightAttr     string
	workers        int
	finalPartition []int // map from vertex id to partition id
	partitionCount int
	logger         *zap.Logger
	mu             sync.Mutex
}

func NewRecursiveBisection(graph *da.Graph, parts int, weightAttr string, logger *zap.Logger,
) *RecursiveBisection {
	finalPartitions := make([]int, graph.NumberOfVertices())
	for i := range finalPartitions {
		finalPartitions[i] = INVALID_PARTITION_ID
	}
	return &RecursiveBisection{
		originalGraph:  graph,
		parts:          parts,
		weightAttr:     weightAttr,
		workers:        5,
		finalPartition: finalPartitions,
		logger:         logger,
	}
}

func (rb *RecursiveBisection) SetWorkers(workers int) {
	rb.workers = workers
}

/*
Partition. [On Balanced Separators in Road Networks, Schild, et al.] https://aschild.github.io/papers/roadseparator.pdf
with population weighted sources and sinks.
every vertex of initialNodeIds ends in exactly one of the parts partitions.
*/
func (rb *RecursiveBisection) Partition(initialNodeIds []da.Index) error {
	if rb.parts < 1 {
		return fmt.Errorf("%w: %d parts", ErrNotEnoughNodes, rb.parts)
	}
	if len(initialNodeIds) < rb.parts {
		return fmt.Errorf("%w: %d nodes, %d parts", ErrNotEnoughNodes, len(initialNodeIds), rb.parts)
	}

	queue := list.New()
	queue.PushBack(bisectionTask{graph: newPartitionGraph(rb.originalGraph, initialNodeIds, rb.weightAttr), parts: rb.parts})

	for queue.Len() > 0 {
		task := queue.Remove(queue.Front()).(bisectionTask)
		if task.parts == 1 {
			rb.assignFinalPartition(task.graph)
			continue
		}

		partsOne := task.parts / 2
		partsTwo := task.parts - partsOne
		ratio := float64(partsOne) / float64(task.parts)

		iflow := NewInertialFlow(task.graph, rb.workers)
		cut := iflow.computeInertialFlowDinic(ratio, BALANCE_SLACK)

		nodesOne, nodesTwo := rb.applyBisection(cut, task.graph)
		if len(nodesOne) < partsOne || len(nodesTwo) < partsTwo {
			rb.logger.Debug("min cut too lopsided, splitting by projection",
				zap.Int("side_one", len(nodesOne)), zap.Int("side_two", len(nodesTwo)),
				zap.Int("parts", task.parts))
			nodesOne, nodesTwo = splitByProjection(task.graph, ratio, partsOne, partsTwo)
		}
		rb.logger.Debug("bisected cell",
			zap.Int("cell_size", task.graph.NumberOfVertices()),
			zap.Int("cut_edges", cut.GetMinCut()),
			zap.Int("parts_one", partsOne), zap.Int("parts_two", partsTwo))

		queue.PushBack(bisectionTask{graph: newPartitionGraph(rb.originalGraph, nodesOne, rb.weightAttr), parts: partsOne})
		queue.PushBack(bisectionTask{graph: newPartitionGraph(rb.originalGraph, nodesTwo, rb.weightAttr), parts: partsTwo})
	}

	rb.logger.Info("recursive bisection done", zap.Int("districts", rb.partitionCount))
	return nil
}

// applyBisection returns the original vertex ids of both sides of the cut.
func (rb *RecursiveBisection) applyBisection(cut *MinCut, graph *partitionGraph) ([]da.Index, []da.Index) {
	partOne := make([]da.Index, 0, cut.GetNumNodesInPartitionOne())
	partTwo := make([]da.Index, 0, cut.GetNumNodesInPartitionTwo())
	for i := 0; i < graph.NumberOfVertices(); i++ {
		v := graph.GetVertex(da.Index(i))
		if v.GetOriginalVertexID() == da.INVALID_VERTEX_ID {
			continue
		}
		if cut.GetFlag(v.GetID()) {
			partOne = append(partOne, v.GetOriginalVertexID())
		} else {
			partTwo = append(partTwo, v.GetOriginalVertexID())
		}
	}
	return partOne, partTwo
}

// splitByProjection. fallback split along latitude: the prefix reaching ratio of the population, clamped
// so each side keeps enough vertices for its districts.
func splitByProjection(graph *partitionGraph, ratio float64, partsOne, partsTwo int) ([]da.Index, []da.Index) {
	n := graph.NumberOfVertices()
	order := make([]partitionVertex, n)
	copy(order, graph.vertices)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].lat != order[j].lat {
			return order[i].lat < order[j].lat
		}
		return order[i].lon < order[j].lon
	})

	target := ratio * graph.totalWeight()
	cutAt := 0
	acc := 0.0
	for cutAt < n && acc < target {
		acc += order[cutAt].weight
		cutAt++
	}
	cutAt = max(cutAt, partsOne)
	cutAt = min(cutAt, n-partsTwo)

	one := make([]da.Index, 0, cutAt)
	two := make([]da.Index, 0, n-cutAt)
	for i, v := range order {
		if i < cutAt {
			one = append(one, v.GetOriginalVertexID())
		} else {
			two = append(two, v.GetOriginalVertexID())
		}
	}
	return one, two
}

func (rb *RecursiveBisection) assignFinalPartition(graph *partitionGraph) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for i := 0; i < graph.NumberOfVertices(); i++ {
		originalId := graph.GetVertex(da.Index(i)).GetOriginalVertexID()
		rb.finalPartition[originalId] = rb.partitionCount
	}
	rb.partitionCount++
}

func (rb *RecursiveBisection) GetFinalPartition() []int {
	return rb.finalPartition
}

// Assignment returns the final partition as a node to district mapping, skipping unassigned vertices.
func (rb *RecursiveBisection) Assignment() map[da.Index]partition.DistrictID {
	out := make(map[da.Index]partition.DistrictID, len(rb.finalPartition))
	for u, p := range rb.finalPartition {
		if p == INVALID_PARTITION_ID {
			continue
		}
		out[da.Index(u)] = partition.DistrictID(p)
	}
	return out
}
