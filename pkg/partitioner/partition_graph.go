package partitioner

import (
	"math"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

const infCapacity = math.MaxInt32

type maxFlowEdge struct {
	to       da.Index
	capacity int
	flow     int
	rev      int // index of the reverse edge in the adjacency of to
}

func (e *maxFlowEdge) GetTo() da.Index {
	return e.to
}

func (e *maxFlowEdge) GetCapacity() int {
	return e.capacity
}

func (e *maxFlowEdge) GetFlow() int {
	return e.flow
}

func (e *maxFlowEdge) AddFlow(f int) {
	e.flow += f
}

type partitionVertex struct {
	id       da.Index
	original da.Index // vertex id in the tract graph
	lat, lon float64
	weight   float64
}

func (v partitionVertex) GetID() da.Index {
	return v.id
}

func (v partitionVertex) GetOriginalVertexID() da.Index {
	return v.original
}

// partitionGraph. induced subgraph of a set of tracts with max-flow edges. every undirected tract edge
// becomes a pair of unit capacity arcs that are each other's reverse.
type partitionGraph struct {
	vertices []partitionVertex
	edges    [][]maxFlowEdge
	level    []int
	lastEdge []int
}

func newPartitionGraph(g *da.Graph, nodes []da.Index, weightAttr string) *partitionGraph {
	pg := &partitionGraph{
		vertices: make([]partitionVertex, 0, len(nodes)),
		edges:    make([][]maxFlowEdge, len(nodes)),
	}
	local := make(map[da.Index]da.Index, len(nodes))
	for i, u := range nodes {
		local[u] = da.Index(i)
		lat, lon := g.GetVertexCoordinates(u)
		pg.vertices = append(pg.vertices, partitionVertex{
			id:       da.Index(i),
			original: u,
			lat:      lat,
			lon:      lon,
			weight:   g.GetAttribute(u, weightAttr),
		})
	}
	for i, u := range nodes {
		for _, v := range g.GetNeighbors(u) {
			j, ok := local[v]
			if !ok || v < u {
				continue
			}
			pg.addUndirectedEdge(da.Index(i), j)
		}
	}
	pg.level = make([]int, len(pg.vertices))
	pg.lastEdge = make([]int, len(pg.vertices))
	return pg
}

func (pg *partitionGraph) addUndirectedEdge(u, v da.Index) {
	pg.edges[u] = append(pg.edges[u], maxFlowEdge{to: v, capacity: 1, rev: len(pg.edges[v])})
	pg.edges[v] = append(pg.edges[v], maxFlowEdge{to: u, capacity: 1, rev: len(pg.edges[u]) - 1})
}

// AddInfEdge adds an arc u->v with infinite capacity and a zero capacity reverse arc.
func (pg *partitionGraph) AddInfEdge(u, v da.Index) {
	pg.edges[u] = append(pg.edges[u], maxFlowEdge{to: v, capacity: infCapacity, rev: len(pg.edges[v])})
	pg.edges[v] = append(pg.edges[v], maxFlowEdge{to: u, capacity: 0, rev: len(pg.edges[u]) - 1})
}

// addArtificialVertex appends a vertex with no coordinates, used for the super source and sink.
func (pg *partitionGraph) addArtificialVertex() da.Index {
	id := da.Index(len(pg.vertices))
	pg.vertices = append(pg.vertices, partitionVertex{id: id, original: da.INVALID_VERTEX_ID})
	pg.edges = append(pg.edges, nil)
	pg.level = append(pg.level, INVALID_LEVEL)
	pg.lastEdge = append(pg.lastEdge, 0)
	return id
}

// Clone copies the graph with all flows reset, so every min-cut job works on its own residual graph.
func (pg *partitionGraph) Clone() *partitionGraph {
	out := &partitionGraph{
		vertices: append([]partitionVertex(nil), pg.vertices...),
		edges:    make([][]maxFlowEdge, len(pg.edges)),
		level:    make([]int, len(pg.level)),
		lastEdge: make([]int, len(pg.lastEdge)),
	}
	for u, es := range pg.edges {
		out.edges[u] = make([]maxFlowEdge, len(es))
		for j, e := range es {
			e.flow = 0
			out.edges[u][j] = e
		}
	}
	return out
}

func (pg *partitionGraph) NumberOfVertices() int {
	return len(pg.vertices)
}

func (pg *partitionGraph) GetVertex(u da.Index) partitionVertex {
	return pg.vertices[u]
}

func (pg *partitionGraph) ForEachVertices(handle func(v partitionVertex)) {
	for _, v := range pg.vertices {
		handle(v)
	}
}

func (pg *partitionGraph) ForEachVertexEdges(u da.Index, handle func(e *maxFlowEdge)) {
	for j := range pg.edges[u] {
		handle(&pg.edges[u][j])
	}
}

func (pg *partitionGraph) GetVertexEdgesSize(u da.Index) int {
	return len(pg.edges[u])
}

func (pg *partitionGraph) GetEdgeOfVertex(u da.Index, j int) *maxFlowEdge {
	return &pg.edges[u][j]
}

func (pg *partitionGraph) GetReversedEdgeOfVertex(u da.Index, j int) *maxFlowEdge {
	e := pg.edges[u][j]
	return &pg.edges[e.to][e.rev]
}

func (pg *partitionGraph) SetVertexLevel(u da.Index, level int) {
	pg.level[u] = level
}

func (pg *partitionGraph) GetVertexLevel(u da.Index) int {
	return pg.level[u]
}

func (pg *partitionGraph) GetLastEdgeIndex(u da.Index) int {
	return pg.lastEdge[u]
}

func (pg *partitionGraph) SetLastEdgeIndex(u da.Index, j int) {
	pg.lastEdge[u] = j
}

func (pg *partitionGraph) IncrementLastEdgeIndex(u da.Index) {
	pg.lastEdge[u]++
}

func (pg *partitionGraph) totalWeight() float64 {
	total := 0.0
	for _, v := range pg.vertices {
		total += v.weight
	}
	return total
}
