package neighbor

import (
	"math"

	"github.com/lintang-b-s/Districtx/pkg/partition"
)

// Constraint decides whether child, produced by one flip of parent, may be explored.
type Constraint interface {
	Name() string
	Allow(parent, child *partition.Partition) bool
}

type constraintFunc struct {
	name string
	fn   func(parent, child *partition.Partition) bool
}

func (c constraintFunc) Name() string {
	return c.name
}

func (c constraintFunc) Allow(parent, child *partition.Partition) bool {
	return c.fn(parent, child)
}

// NewConstraint wraps fn as a Constraint.
func NewConstraint(name string, fn func(parent, child *partition.Partition) bool) Constraint {
	return constraintFunc{name: name, fn: fn}
}

// Contiguous rejects a flip that splits the district losing the node. the gaining district stays
// connected because the node borders it. a district that was already split is not held to it.
func Contiguous() Constraint {
	return NewConstraint("contiguous", func(parent, child *partition.Partition) bool {
		_, from, _, ok := child.LastFlip()
		if !ok {
			return true
		}
		return child.IsContiguous(from) || !parent.IsContiguous(from)
	})
}

// WithinPopulationTolerance keeps the populations of the two districts touched by a flip within
// eps of the ideal population (total / number of districts) of initial. a district already outside
// the band may still move, as long as its deviation does not grow.
func WithinPopulationTolerance(initial *partition.Partition, populationAttr string, eps float64) Constraint {
	ideal := initial.Total(populationAttr) / float64(initial.NumDistricts())
	lo, hi := ideal*(1-eps), ideal*(1+eps)
	return NewConstraint("population-tolerance", func(parent, child *partition.Partition) bool {
		_, from, to, ok := child.LastFlip()
		if !ok {
			return true
		}
		for _, d := range []partition.DistrictID{from, to} {
			after, err := child.Tally(d, populationAttr)
			if err != nil {
				return false
			}
			if after >= lo && after <= hi {
				continue
			}
			before, _ := parent.Tally(d, populationAttr)
			if math.Abs(after-ideal) > math.Abs(before-ideal) {
				return false
			}
		}
		return true
	})
}

// CutEdgeUpperBound bounds the number of cut edges at factor times the cut edges of initial.
func CutEdgeUpperBound(initial *partition.Partition, factor float64) Constraint {
	bound := factor * float64(initial.NumCutEdges())
	return NewConstraint("cut-edge-bound", func(parent, child *partition.Partition) bool {
		return float64(child.NumCutEdges()) <= bound
	})
}
