package partition

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

// maxLayerDelta. flips a layer records on top of its base before children start from a flattened copy.
const maxLayerDelta = 64

/*
assignmentLayer. node -> district as a base array shared by a whole chain of partitions plus the nodes
flipped since the base was written. a child copies at most maxLayerDelta entries. a layer that is full
flattens once, and every child of it starts from that flattened copy.
*/
type assignmentLayer struct {
	base  []DistrictID
	delta map[da.Index]DistrictID

	flatOnce sync.Once
	flat     *assignmentLayer
}

func newAssignmentLayer(base []DistrictID) *assignmentLayer {
	return &assignmentLayer{base: base, delta: map[da.Index]DistrictID{}}
}

func (a *assignmentLayer) len() int {
	return len(a.base)
}

func (a *assignmentLayer) get(u da.Index) DistrictID {
	if d, ok := a.delta[u]; ok {
		return d
	}
	return a.base[u]
}

func (a *assignmentLayer) flattened() *assignmentLayer {
	a.flatOnce.Do(func() {
		base := make([]DistrictID, len(a.base))
		copy(base, a.base)
		for u, d := range a.delta {
			base[u] = d
		}
		a.flat = newAssignmentLayer(base)
	})
	return a.flat
}

// with returns a new layer in which u belongs to d. a is not modified.
func (a *assignmentLayer) with(u da.Index, d DistrictID) *assignmentLayer {
	src := a
	if len(a.delta) >= maxLayerDelta {
		src = a.flattened()
	}
	delta := make(map[da.Index]DistrictID, len(src.delta)+1)
	for v, dv := range src.delta {
		delta[v] = dv
	}
	if src.base[u] == d {
		delete(delta, u)
	} else {
		delta[u] = d
	}
	return &assignmentLayer{base: src.base, delta: delta}
}

/*
cutLayer. the cut-edge set as a shared base set plus the edges whose membership changed since. delta
maps an edge to true when it joined the cut and to false when it left it.
*/
type cutLayer struct {
	base  map[da.Edge]struct{}
	delta map[da.Edge]bool
	size  int

	flatOnce sync.Once
	flat     *cutLayer
}

func newCutLayer(base map[da.Edge]struct{}) *cutLayer {
	return &cutLayer{base: base, delta: map[da.Edge]bool{}, size: len(base)}
}

func (c *cutLayer) contains(e da.Edge) bool {
	if in, ok := c.delta[e]; ok {
		return in
	}
	_, ok := c.base[e]
	return ok
}

func (c *cutLayer) forEach(handle func(e da.Edge)) {
	for e := range c.base {
		if in, ok := c.delta[e]; ok && !in {
			continue
		}
		handle(e)
	}
	for e, in := range c.delta {
		if in {
			handle(e)
		}
	}
}

func (c *cutLayer) flattened() *cutLayer {
	c.flatOnce.Do(func() {
		base := make(map[da.Edge]struct{}, c.size)
		c.forEach(func(e da.Edge) {
			base[e] = struct{}{}
		})
		c.flat = newCutLayer(base)
	})
	return c.flat
}

// with returns a new layer where every edge of changes is in the cut iff its value is true.
func (c *cutLayer) with(changes map[da.Edge]bool) *cutLayer {
	src := c
	if len(c.delta) >= maxLayerDelta {
		src = c.flattened()
	}
	out := &cutLayer{base: src.base, delta: make(map[da.Edge]bool, len(src.delta)+len(changes)), size: src.size}
	for e, in := range src.delta {
		out.delta[e] = in
	}
	for e, in := range changes {
		if src.contains(e) == in {
			continue
		}
		if in {
			out.size++
		} else {
			out.size--
		}
		if _, inBase := src.base[e]; inBase == in {
			delete(out.delta, e)
		} else {
			out.delta[e] = in
		}
	}
	return out
}

// nodeHash. contribution of "u belongs to d" to the assignment hash. the hash of a partition is the
// xor over all nodes, so a flip updates it with two terms.
func nodeHash(u da.Index, d DistrictID) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(u))
	binary.LittleEndian.PutUint64(buf[4:], uint64(d))
	return xxhash.Sum64(buf[:])
}
