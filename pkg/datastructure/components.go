package datastructure

import (
	"container/list"
	"math"
	"sort"

	"github.com/lintang-b-s/Districtx/pkg/geo"
	"go.uber.org/zap"
)

// ConnectedComponents returns the vertex sets of all connected components, largest first.
// ties are ordered by smallest vertex id.
func (g *Graph) ConnectedComponents() [][]Index {
	n := g.NumberOfVertices()
	visited := make([]bool, n)
	components := make([][]Index, 0, 1)

	for s := Index(0); s < Index(n); s++ {
		if visited[s] {
			continue
		}
		component := make([]Index, 0, 16)
		queue := list.New()
		queue.PushBack(s)
		visited[s] = true
		for queue.Len() > 0 {
			u := queue.Remove(queue.Front()).(Index)
			component = append(component, u)
			for _, v := range g.adj[u] {
				if !visited[v] {
					visited[v] = true
					queue.PushBack(v)
				}
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		return len(components[i]) > len(components[j])
	})
	return components
}

func (g *Graph) IsConnected() bool {
	if g.NumberOfVertices() == 0 {
		return true
	}
	return len(g.ConnectedComponents()) == 1
}

// RepairIslands connects every component other than the largest one to the largest component by adding
// an edge between the closest pair of vertices (haversine distance of vertex coordinates).
// returns the added edges.
func (g *Graph) RepairIslands(log *zap.Logger) []Edge {
	components := g.ConnectedComponents()
	added := make([]Edge, 0, len(components))
	if len(components) <= 1 {
		return added
	}

	mainland := components[0]
	for _, island := range components[1:] {
		bestDist := math.Inf(1)
		var from, to Index
		for _, u := range island {
			uLat, uLon := g.GetVertexCoordinates(u)
			for _, v := range mainland {
				vLat, vLon := g.GetVertexCoordinates(v)
				d := geo.CalculateHaversineDistance(uLat, uLon, vLat, vLon)
				if d < bestDist {
					bestDist = d
					from, to = u, v
				}
			}
		}

		// AddEdge only fails on unknown vertices
		_ = g.AddEdge(from, to)
		added = append(added, NewEdge(from, to))
		log.Info("connected island to mainland",
			zap.Int("island_size", len(island)),
			zap.String("from", g.vertices[from].geoID),
			zap.String("to", g.vertices[to].geoID),
			zap.Float64("distance_km", bestDist))
	}
	return added
}

// HopDistances returns the number of edges on a shortest path from source to every vertex, -1 if unreachable.
func (g *Graph) HopDistances(source Index) []int {
	dist := make([]int, g.NumberOfVertices())
	for i := range dist {
		dist[i] = -1
	}
	dist[source] = 0
	queue := list.New()
	queue.PushBack(source)
	for queue.Len() > 0 {
		u := queue.Remove(queue.Front()).(Index)
		for _, v := range g.adj[u] {
			if dist[v] < 0 {
				dist[v] = dist[u] + 1
				queue.PushBack(v)
			}
		}
	}
	return dist
}
