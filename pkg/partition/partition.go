package partition

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

type DistrictID int

// NodeSet. members of one district. shared between partitions, callers must not modify it.
type NodeSet map[da.Index]struct{}

func (s NodeSet) Len() int {
	return len(s)
}

func (s NodeSet) Contains(u da.Index) bool {
	_, ok := s[u]
	return ok
}

func (s NodeSet) Sorted() []da.Index {
	out := make([]da.Index, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// districtMemo. lazily evaluated updater values of one district. once values is set it is never
// modified again, so a child partition may reuse it.
type districtMemo struct {
	mu     sync.Mutex
	values []Value
}

func (m *districtMemo) get(reg *Registry, agg *aggregate) []Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = reg.evaluate(agg)
	}
	return m.values
}

func (m *districtMemo) computed() []Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values
}

type flipInfo struct {
	node     da.Index
	from, to DistrictID
}

/*
Partition. total assignment of graph nodes to a fixed set of districts. a Partition is never modified
after construction: Flip returns a new Partition that shares everything it can with its parent
(member sets, aggregates and computed updater values of the unaffected districts, and the base of the
assignment and cut-edge layers).
*/
type Partition struct {
	graph *da.Graph
	reg   *Registry

	assignment *assignmentLayer
	ids        []DistrictID // sorted
	slots      map[DistrictID]int

	members []NodeSet
	aggs    []*aggregate
	memo    []*districtMemo
	cut     *cutLayer

	last   *flipInfo
	parent *Partition

	hash uint64

	cutOnce   sync.Once
	cutSorted []da.Edge
}

// AssignOptions. expected range of distinct district ids, 0 means unbounded on that side.
type AssignOptions struct {
	MinDistricts int
	MaxDistricts int
}

// Assign builds the initial partition. every node of g must be mapped, and mapping must not reference
// nodes outside g. a nil registry evaluates no updaters.
func Assign(g *da.Graph, reg *Registry, mapping map[da.Index]DistrictID, opts AssignOptions) (*Partition, error) {
	if reg == nil {
		reg, _ = NewRegistry()
	}
	n := g.NumberOfVertices()
	for u := range mapping {
		if int(u) >= n {
			return nil, &InvalidAssignmentError{Node: u, Reason: "node not in graph"}
		}
	}

	assignment := make([]DistrictID, n)
	seen := make(map[DistrictID]struct{})
	for u := da.Index(0); u < da.Index(n); u++ {
		d, ok := mapping[u]
		if !ok {
			return nil, &InvalidAssignmentError{Node: u, Reason: "unmapped node"}
		}
		assignment[u] = d
		seen[d] = struct{}{}
	}

	found := len(seen)
	if found == 0 || (opts.MinDistricts > 0 && found < opts.MinDistricts) ||
		(opts.MaxDistricts > 0 && found > opts.MaxDistricts) {
		return nil, &InvalidAssignmentError{Found: found, Min: opts.MinDistricts, Max: opts.MaxDistricts,
			Reason: "district count out of range"}
	}

	ids := make([]DistrictID, 0, found)
	for d := range seen {
		ids = append(ids, d)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	p := &Partition{
		graph:      g,
		reg:        reg,
		assignment: newAssignmentLayer(assignment),
		ids:        ids,
		slots:      make(map[DistrictID]int, found),
		members:    make([]NodeSet, found),
		aggs:       make([]*aggregate, found),
		memo:       make([]*districtMemo, found),
	}
	for i, d := range ids {
		p.slots[d] = i
		p.members[i] = make(NodeSet)
		p.aggs[i] = reg.emptyAggregate()
		p.memo[i] = &districtMemo{}
	}
	for u := da.Index(0); u < da.Index(n); u++ {
		s := p.slots[assignment[u]]
		p.members[s][u] = struct{}{}
		reg.add(p.aggs[s], g, u, 1)
		p.hash ^= nodeHash(u, assignment[u])
	}
	cut := make(map[da.Edge]struct{})
	for _, e := range g.GetEdges() {
		if assignment[e.GetU()] != assignment[e.GetV()] {
			cut[e] = struct{}{}
		}
	}
	p.cut = newCutLayer(cut)
	return p, nil
}

// Flip returns a new partition in which node belongs to district to. only the two affected districts
// are rebuilt and only the edges incident to node are re-examined for the cut-edge set. a flip that
// would leave a district without nodes is rejected.
func (p *Partition) Flip(node da.Index, to DistrictID) (*Partition, error) {
	if int(node) >= p.assignment.len() {
		return nil, &InvalidFlipError{Node: node, District: to, Reason: "node not in graph"}
	}
	toSlot, ok := p.slots[to]
	if !ok {
		return nil, &InvalidFlipError{Node: node, District: to, Reason: "not one of the fixed district ids"}
	}
	from := p.assignment.get(node)
	if from == to {
		return nil, &InvalidFlipError{Node: node, District: to, Reason: "node already in district"}
	}
	adjacent := false
	for _, v := range p.graph.GetNeighbors(node) {
		if p.assignment.get(v) == to {
			adjacent = true
			break
		}
	}
	if !adjacent {
		return nil, &InvalidFlipError{Node: node, District: to, Reason: "node not adjacent to district"}
	}
	fromSlot := p.slots[from]
	if len(p.members[fromSlot]) == 1 {
		return nil, &InvalidFlipError{Node: node, District: to, Reason: "flip would empty district"}
	}

	child := &Partition{
		graph:      p.graph,
		reg:        p.reg,
		assignment: p.assignment.with(node, to),
		ids:        p.ids,
		slots:      p.slots,
		members:    append([]NodeSet(nil), p.members...),
		aggs:       append([]*aggregate(nil), p.aggs...),
		memo:       make([]*districtMemo, len(p.memo)),
		last:       &flipInfo{node: node, from: from, to: to},
		parent:     p,
		hash:       p.hash ^ nodeHash(node, from) ^ nodeHash(node, to),
	}

	child.members[fromSlot] = cloneWithout(p.members[fromSlot], node)
	child.members[toSlot] = cloneWith(p.members[toSlot], node)

	fromAgg := p.reg.cloneAggregate(p.aggs[fromSlot])
	p.reg.add(fromAgg, p.graph, node, -1)
	toAgg := p.reg.cloneAggregate(p.aggs[toSlot])
	p.reg.add(toAgg, p.graph, node, 1)
	child.aggs[fromSlot] = fromAgg
	child.aggs[toSlot] = toAgg

	for i, m := range p.memo {
		if i != fromSlot && i != toSlot && m.computed() != nil {
			child.memo[i] = m
		} else {
			child.memo[i] = &districtMemo{}
		}
	}

	changes := make(map[da.Edge]bool, p.graph.GetDegree(node))
	for _, v := range p.graph.GetNeighbors(node) {
		changes[da.NewEdge(node, v)] = child.assignment.get(v) != to
	}
	child.cut = p.cut.with(changes)
	return child, nil
}

func cloneWithout(s NodeSet, u da.Index) NodeSet {
	out := make(NodeSet, len(s))
	for v := range s {
		if v != u {
			out[v] = struct{}{}
		}
	}
	return out
}

func cloneWith(s NodeSet, u da.Index) NodeSet {
	out := make(NodeSet, len(s)+1)
	for v := range s {
		out[v] = struct{}{}
	}
	out[u] = struct{}{}
	return out
}

func (p *Partition) GetGraph() *da.Graph {
	return p.graph
}

func (p *Partition) GetRegistry() *Registry {
	return p.reg
}

// Len. number of nodes.
func (p *Partition) Len() int {
	return p.assignment.len()
}

func (p *Partition) NumDistricts() int {
	return len(p.ids)
}

// DistrictIDs returns the fixed district ids, ascending. callers must not modify it.
func (p *Partition) DistrictIDs() []DistrictID {
	return p.ids
}

func (p *Partition) HasDistrict(d DistrictID) bool {
	_, ok := p.slots[d]
	return ok
}

func (p *Partition) DistrictOf(u da.Index) DistrictID {
	return p.assignment.get(u)
}

// Members returns the node set of district d, nil for an unknown district.
func (p *Partition) Members(d DistrictID) NodeSet {
	s, ok := p.slots[d]
	if !ok {
		return nil
	}
	return p.members[s]
}

func (p *Partition) NodeCount(d DistrictID) int {
	return len(p.Members(d))
}

// Districts returns district id -> member set.
func (p *Partition) Districts() map[DistrictID]NodeSet {
	out := make(map[DistrictID]NodeSet, len(p.ids))
	for i, d := range p.ids {
		out[d] = p.members[i]
	}
	return out
}

// CutEdges returns the edges whose endpoints lie in different districts, sorted by (u, v).
// callers must not modify it.
func (p *Partition) CutEdges() []da.Edge {
	p.cutOnce.Do(func() {
		p.cutSorted = make([]da.Edge, 0, p.cut.size)
		p.cut.forEach(func(e da.Edge) {
			p.cutSorted = append(p.cutSorted, e)
		})
		sort.Slice(p.cutSorted, func(i, j int) bool {
			a, b := p.cutSorted[i], p.cutSorted[j]
			if a.GetU() != b.GetU() {
				return a.GetU() < b.GetU()
			}
			return a.GetV() < b.GetV()
		})
	})
	return p.cutSorted
}

func (p *Partition) NumCutEdges() int {
	return p.cut.size
}

func (p *Partition) IsCutEdge(e da.Edge) bool {
	return p.cut.contains(da.NewEdge(e.GetU(), e.GetV()))
}

// BoundaryNodes returns the endpoints of all cut edges, ascending.
func (p *Partition) BoundaryNodes() []da.Index {
	seen := make(map[da.Index]struct{}, 2*p.cut.size)
	p.cut.forEach(func(e da.Edge) {
		seen[e.GetU()] = struct{}{}
		seen[e.GetV()] = struct{}{}
	})
	return NodeSet(seen).Sorted()
}

// Tally returns the sum of attr over district d. attributes tallied by a registered updater are
// answered from the incremental aggregate, others are summed over the members.
func (p *Partition) Tally(d DistrictID, attr string) (float64, error) {
	s, ok := p.slots[d]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDistrict, d)
	}
	if i, ok := p.reg.attrIndex[attr]; ok {
		return p.aggs[s].sums[i], nil
	}
	total := 0.0
	for u := range p.members[s] {
		total += p.graph.GetAttribute(u, attr)
	}
	return total, nil
}

// Total returns the sum of attr over all districts.
func (p *Partition) Total(attr string) float64 {
	total := 0.0
	for _, d := range p.ids {
		t, _ := p.Tally(d, attr)
		total += t
	}
	return total
}

// Value returns the memoized value of updater name for district d.
func (p *Partition) Value(d DistrictID, name string) (Value, error) {
	s, ok := p.slots[d]
	if !ok {
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownDistrict, d)
	}
	i, ok := p.reg.index[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownUpdater, name)
	}
	return p.memo[s].get(p.reg, p.aggs[s])[i], nil
}

// Values returns all updater values of district d keyed by updater name.
func (p *Partition) Values(d DistrictID) (map[string]Value, error) {
	s, ok := p.slots[d]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDistrict, d)
	}
	vals := p.memo[s].get(p.reg, p.aggs[s])
	out := make(map[string]Value, len(vals))
	for i, spec := range p.reg.specs {
		out[spec.Name] = vals[i]
	}
	return out, nil
}

// IsContiguous reports whether the members of district d induce a connected subgraph.
// an empty or unknown district is not contiguous.
func (p *Partition) IsContiguous(d DistrictID) bool {
	members := p.Members(d)
	if len(members) == 0 {
		return false
	}
	var start da.Index
	for u := range members {
		start = u
		break
	}
	visited := map[da.Index]struct{}{start: {}}
	queue := list.New()
	queue.PushBack(start)
	for queue.Len() > 0 {
		u := queue.Remove(queue.Front()).(da.Index)
		for _, v := range p.graph.GetNeighbors(u) {
			if _, in := members[v]; !in {
				continue
			}
			if _, ok := visited[v]; !ok {
				visited[v] = struct{}{}
				queue.PushBack(v)
			}
		}
	}
	return len(visited) == len(members)
}

// LastFlip returns the flip that produced p from its parent. ok is false for the initial partition.
func (p *Partition) LastFlip() (node da.Index, from, to DistrictID, ok bool) {
	if p.last == nil {
		return da.INVALID_VERTEX_ID, 0, 0, false
	}
	return p.last.node, p.last.from, p.last.to, true
}

func (p *Partition) Parent() *Partition {
	return p.parent
}

// Hash. xor of the xxhash of every (node, district) pair, kept up to date by Flip.
func (p *Partition) Hash() uint64 {
	return p.hash
}

// Equal reports whether p and o assign every node of the same graph to the same district.
func (p *Partition) Equal(o *Partition) bool {
	if p == o {
		return true
	}
	if o == nil || p.graph != o.graph || p.Len() != o.Len() {
		return false
	}
	for u := da.Index(0); u < da.Index(p.Len()); u++ {
		if p.DistrictOf(u) != o.DistrictOf(u) {
			return false
		}
	}
	return true
}

// Assignment returns a copy of the node -> district mapping.
func (p *Partition) Assignment() map[da.Index]DistrictID {
	out := make(map[da.Index]DistrictID, p.Len())
	for u := da.Index(0); u < da.Index(p.Len()); u++ {
		out[u] = p.DistrictOf(u)
	}
	return out
}
