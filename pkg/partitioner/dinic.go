package partitioner

import (
	"container/list"
	"math"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

type DinicMaxFlow struct {
	graph *partitionGraph
}

func NewDinicMaxFlow(graph *partitionGraph) *DinicMaxFlow {
	return &DinicMaxFlow{graph: graph}
}

func (dmf *DinicMaxFlow) bfsLevelGraph(source, target da.Index) bool {
	dmf.graph.ForEachVertices(func(v partitionVertex) {
		dmf.graph.SetVertexLevel(v.GetID(), INVALID_LEVEL)
	})

	levelQueue := list.New()
	levelQueue.PushBack(source)
	dmf.graph.SetVertexLevel(source, 0)

	for levelQueue.Len() > 0 {
		u := levelQueue.Front().Value.(da.Index)
		levelQueue.Remove(levelQueue.Front())

		level := dmf.graph.GetVertexLevel(u) + 1
		if u == target {
			break
		}

		dmf.graph.ForEachVertexEdges(u, func(edge *maxFlowEdge) {
			v := edge.GetTo()
			residual := edge.GetCapacity() - edge.GetFlow()
			if residual > 0 && dmf.graph.GetVertexLevel(v) == INVALID_LEVEL {
				dmf.graph.SetVertexLevel(v, level)
				levelQueue.PushBack(v)
			}
		})
	}
	return dmf.graph.GetVertexLevel(target) != INVALID_LEVEL
}

func (dmf *DinicMaxFlow) dfsAugmentPath(u, t da.Index, f int) int {
	if u == t || f == 0 {
		return f
	}

	for ; dmf.graph.GetLastEdgeIndex(u) < dmf.graph.GetVertexEdgesSize(u); dmf.graph.IncrementLastEdgeIndex(u) {
		j := dmf.graph.GetLastEdgeIndex(u)
		edge := dmf.graph.GetEdgeOfVertex(u, j)
		v := edge.GetTo()
		residual := edge.GetCapacity() - edge.GetFlow()
		if residual <= 0 || dmf.graph.GetVertexLevel(v) != dmf.graph.GetVertexLevel(u)+1 {
			continue
		}

		if pushed := dmf.dfsAugmentPath(v, t, min(residual, f)); pushed > 0 {
			edge.AddFlow(pushed)
			dmf.graph.GetReversedEdgeOfVertex(u, j).AddFlow(-pushed)
			return pushed
		}
	}

	return 0
}

func (dmf *DinicMaxFlow) resetCurrentEdges() {
	for i := 0; i < dmf.graph.NumberOfVertices(); i++ {
		dmf.graph.SetLastEdgeIndex(da.Index(i), 0)
	}
}

/*
ComputeMaxflowMinCut. s and t must be the two artificial vertices added last to the graph.
time complexity: O(N^2 * M), N,M = number of vertices & edges of the partition graph
*/
func (dmf *DinicMaxFlow) ComputeMaxflowMinCut(s, t da.Index) *MinCut {
	minCut := NewMinCut(dmf.graph.NumberOfVertices() - 2) // exclude artificial source and sink
	maxFlow := 0

	for dmf.bfsLevelGraph(s, t) {
		dmf.resetCurrentEdges()
		for {
			flow := dmf.dfsAugmentPath(s, t, math.MaxInt)
			if flow == 0 {
				break
			}
			maxFlow += flow
		}
	}
	dmf.makeMinCutFlags(minCut, maxFlow)
	return minCut
}

// makeMinCutFlags. after the last bfs the levels mark the vertices still reachable from the source in
// the residual graph, which is the source side of a minimum cut.
func (dmf *DinicMaxFlow) makeMinCutFlags(minCut *MinCut, maxflow int) {
	for u := da.Index(0); u < da.Index(dmf.graph.NumberOfVertices()-2); u++ {
		if dmf.graph.GetVertexLevel(u) != INVALID_LEVEL {
			minCut.SetFlag(u, true)
			minCut.weightOne += dmf.graph.GetVertex(u).weight
		} else {
			minCut.incrementNumNodesInPartitionTwo()
		}
	}
	minCut.setMinCut(maxflow)
}
