package datastructure

import (
	"errors"
	"fmt"
	"sort"
)

type Index uint32

const INVALID_VERTEX_ID = Index(^uint32(0))

var (
	ErrVertexNotFound    = errors.New("vertex not found")
	ErrDuplicateGeoID    = errors.New("duplicate geo id")
	ErrGraphDisconnected = errors.New("graph is not connected")
)

// Vertex. one geographic unit (census tract). numeric attributes hold population, vote counts, class,
// labels hold categorical values and lists hold feature ids (e.g. substations within the unit).
type Vertex struct {
	id     Index
	geoID  string
	lat    float64
	lon    float64
	attrs  map[string]float64
	labels map[string]string
	lists  map[string][]string
}

func newVertex(id Index, geoID string, lat, lon float64) *Vertex {
	return &Vertex{
		id:     id,
		geoID:  geoID,
		lat:    lat,
		lon:    lon,
		attrs:  make(map[string]float64),
		labels: make(map[string]string),
		lists:  make(map[string][]string),
	}
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetGeoID() string {
	return v.geoID
}

func (v *Vertex) GetLat() float64 {
	return v.lat
}

func (v *Vertex) GetLon() float64 {
	return v.lon
}

// Edge. undirected edge, u < v always.
type Edge struct {
	u, v Index
}

func NewEdge(u, v Index) Edge {
	if u > v {
		u, v = v, u
	}
	return Edge{u: u, v: v}
}

func (e Edge) GetU() Index {
	return e.u
}

func (e Edge) GetV() Index {
	return e.v
}

// Other returns the endpoint of e that is not w.
func (e Edge) Other(w Index) Index {
	if e.u == w {
		return e.v
	}
	return e.u
}

func (e Edge) String() string {
	return fmt.Sprintf("(%d,%d)", e.u, e.v)
}

// Graph. undirected adjacency graph of geographic units. built once by the loader and treated as read-only
// while partitions reference it, so any number of goroutines may read it concurrently.
type Graph struct {
	vertices []*Vertex
	adj      [][]Index
	edges    []Edge
	edgeSet  map[Edge]struct{}
	geoIndex map[string]Index
}

func NewGraph() *Graph {
	return &Graph{
		vertices: make([]*Vertex, 0),
		adj:      make([][]Index, 0),
		edges:    make([]Edge, 0),
		edgeSet:  make(map[Edge]struct{}),
		geoIndex: make(map[string]Index),
	}
}

// AddVertex adds a unit with a stable external id and its representative coordinate.
func (g *Graph) AddVertex(geoID string, lat, lon float64) (Index, error) {
	if _, exists := g.geoIndex[geoID]; exists {
		return INVALID_VERTEX_ID, fmt.Errorf("%w: %s", ErrDuplicateGeoID, geoID)
	}
	id := Index(len(g.vertices))
	g.vertices = append(g.vertices, newVertex(id, geoID, lat, lon))
	g.adj = append(g.adj, make([]Index, 0, 6))
	g.geoIndex[geoID] = id
	return id, nil
}

// AddEdge adds the undirected edge (u,v). self loops and duplicates are ignored.
func (g *Graph) AddEdge(u, v Index) error {
	if !g.hasVertex(u) || !g.hasVertex(v) {
		return fmt.Errorf("%w: edge (%d,%d)", ErrVertexNotFound, u, v)
	}
	if u == v {
		return nil
	}
	e := NewEdge(u, v)
	if _, exists := g.edgeSet[e]; exists {
		return nil
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.adj[u] = insertSorted(g.adj[u], v)
	g.adj[v] = insertSorted(g.adj[v], u)
	return nil
}

func insertSorted(s []Index, x Index) []Index {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= x })
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = x
	return s
}

func (g *Graph) hasVertex(u Index) bool {
	return int(u) < len(g.vertices)
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) GetVertex(u Index) *Vertex {
	return g.vertices[u]
}

func (g *Graph) GetVertexCoordinates(u Index) (float64, float64) {
	return g.vertices[u].lat, g.vertices[u].lon
}

func (g *Graph) GetVertexByGeoID(geoID string) (Index, bool) {
	id, ok := g.geoIndex[geoID]
	return id, ok
}

// GetNeighbors returns the sorted neighbor list of u. callers must not modify it.
func (g *Graph) GetNeighbors(u Index) []Index {
	return g.adj[u]
}

func (g *Graph) GetDegree(u Index) int {
	return len(g.adj[u])
}

func (g *Graph) HasEdge(u, v Index) bool {
	_, ok := g.edgeSet[NewEdge(u, v)]
	return ok
}

// GetEdges returns all edges in insertion order. callers must not modify it.
func (g *Graph) GetEdges() []Edge {
	return g.edges
}

func (g *Graph) ForEachVertices(handle func(v *Vertex)) {
	for _, v := range g.vertices {
		handle(v)
	}
}

func (g *Graph) ForEachNeighbor(u Index, handle func(v Index)) {
	for _, v := range g.adj[u] {
		handle(v)
	}
}

func (g *Graph) SetAttribute(u Index, name string, val float64) {
	g.vertices[u].attrs[name] = val
}

// GetAttribute returns the numeric attribute name of u, 0 if absent.
func (g *Graph) GetAttribute(u Index, name string) float64 {
	return g.vertices[u].attrs[name]
}

func (g *Graph) LookupAttribute(u Index, name string) (float64, bool) {
	val, ok := g.vertices[u].attrs[name]
	return val, ok
}

func (g *Graph) SetLabel(u Index, name, val string) {
	g.vertices[u].labels[name] = val
}

func (g *Graph) GetLabel(u Index, name string) string {
	return g.vertices[u].labels[name]
}

func (g *Graph) LookupLabel(u Index, name string) (string, bool) {
	val, ok := g.vertices[u].labels[name]
	return val, ok
}

func (g *Graph) SetList(u Index, name string, items []string) {
	g.vertices[u].lists[name] = append([]string(nil), items...)
}

func (g *Graph) GetList(u Index, name string) []string {
	return g.vertices[u].lists[name]
}

// TotalAttribute sums attribute name over all vertices.
func (g *Graph) TotalAttribute(name string) float64 {
	total := 0.0
	for _, v := range g.vertices {
		total += v.attrs[name]
	}
	return total
}

// SetListCountAttribute stores len(list) of every vertex as numeric attribute name, so list features
// (infrastructure within a unit) can be tallied.
func (g *Graph) SetListCountAttribute(list, name string) {
	for _, v := range g.vertices {
		v.attrs[name] = float64(len(v.lists[list]))
	}
}
