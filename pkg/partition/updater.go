package partition

import (
	"fmt"
	"strconv"

	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

type Kind int

const (
	// Tally. sum of a numeric node attribute over the district.
	Tally Kind = iota
	// WeightedMean. sum(attr*weight)/sum(weight) over the district, 0 when the weight sum is 0.
	WeightedMean
	// Histogram. number of nodes per value of a categorical attribute.
	Histogram
	// Derived. computed from the values of other updaters of the same district.
	Derived
)

func (k Kind) String() string {
	switch k {
	case Tally:
		return "tally"
	case WeightedMean:
		return "weighted-mean"
	case Histogram:
		return "histogram"
	case Derived:
		return "derived"
	default:
		return "unknown"
	}
}

// Value. result of one updater for one district. numeric for tally, weighted mean and most derived
// updaters, a histogram for Histogram. values are immutable once computed.
type Value struct {
	num  float64
	hist map[string]float64
}

func Number(x float64) Value {
	return Value{num: x}
}

func Bool(b bool) Value {
	if b {
		return Value{num: 1}
	}
	return Value{num: 0}
}

func HistogramValue(h map[string]float64) Value {
	return Value{hist: h}
}

func (v Value) Float() float64 {
	return v.num
}

func (v Value) Bool() bool {
	return v.num != 0
}

// Histogram returns the category counts. callers must not modify the map.
func (v Value) Histogram() map[string]float64 {
	return v.hist
}

// DeriveFunc receives the values of DependsOn, in the declared order.
type DeriveFunc func(deps []Value) Value

type UpdaterSpec struct {
	Name string
	Kind Kind
	// Attribute. numeric attribute for Tally / WeightedMean, categorical attribute for Histogram.
	Attribute string
	// WeightAttribute. weight for WeightedMean.
	WeightAttribute string
	DependsOn       []string
	Derive          DeriveFunc
}

// Registry. fixed set of updaters declared once per run, validated and ordered so that every updater
// is evaluated after the updaters it depends on.
type Registry struct {
	specs []UpdaterSpec // evaluation order
	index map[string]int
	deps  [][]int

	// attributes summed incrementally per district
	attrs     []string
	attrIndex map[string]int
	// per spec: attribute slot for Tally, numerator slot for WeightedMean, histogram slot for Histogram
	slot      []int
	weightIdx []int
	numer     []numerator
	histAttrs []string
}

type numerator struct {
	attr, weight string
}

func NewRegistry(specs ...UpdaterSpec) (*Registry, error) {
	declared := make(map[string]int, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: updater %d has no name", ErrInvalidUpdater, i)
		}
		if _, dup := declared[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate updater %q", ErrInvalidUpdater, s.Name)
		}
		declared[s.Name] = i
		switch s.Kind {
		case Tally, Histogram:
			if s.Attribute == "" {
				return nil, fmt.Errorf("%w: %s updater %q needs an attribute", ErrInvalidUpdater, s.Kind, s.Name)
			}
		case WeightedMean:
			if s.Attribute == "" || s.WeightAttribute == "" {
				return nil, fmt.Errorf("%w: weighted-mean updater %q needs attribute and weight", ErrInvalidUpdater, s.Name)
			}
		case Derived:
			if s.Derive == nil {
				return nil, fmt.Errorf("%w: derived updater %q has no derive function", ErrInvalidUpdater, s.Name)
			}
		default:
			return nil, fmt.Errorf("%w: updater %q has unknown kind %d", ErrInvalidUpdater, s.Name, s.Kind)
		}
	}

	for _, s := range specs {
		for _, d := range s.DependsOn {
			if _, ok := declared[d]; !ok {
				return nil, fmt.Errorf("%w: %q depends on %q", ErrUnknownUpdater, s.Name, d)
			}
		}
	}

	order, err := topologicalOrder(specs, declared)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		specs:     make([]UpdaterSpec, 0, len(specs)),
		index:     make(map[string]int, len(specs)),
		attrIndex: make(map[string]int),
	}
	for _, i := range order {
		reg.index[specs[i].Name] = len(reg.specs)
		reg.specs = append(reg.specs, specs[i])
	}

	reg.deps = make([][]int, len(reg.specs))
	reg.slot = make([]int, len(reg.specs))
	reg.weightIdx = make([]int, len(reg.specs))
	for i, s := range reg.specs {
		reg.deps[i] = make([]int, len(s.DependsOn))
		for j, d := range s.DependsOn {
			reg.deps[i][j] = reg.index[d]
		}
		reg.slot[i] = -1
		reg.weightIdx[i] = -1
		switch s.Kind {
		case Tally:
			reg.slot[i] = reg.trackAttribute(s.Attribute)
		case WeightedMean:
			reg.weightIdx[i] = reg.trackAttribute(s.WeightAttribute)
			reg.slot[i] = len(reg.numer)
			reg.numer = append(reg.numer, numerator{attr: s.Attribute, weight: s.WeightAttribute})
		case Histogram:
			reg.slot[i] = len(reg.histAttrs)
			reg.histAttrs = append(reg.histAttrs, s.Attribute)
		}
	}
	return reg, nil
}

// topologicalOrder. kahn's algorithm, always taking the earliest declared ready updater so the order is
// deterministic.
func topologicalOrder(specs []UpdaterSpec, declared map[string]int) ([]int, error) {
	indeg := make([]int, len(specs))
	dependents := make([][]int, len(specs))
	for i, s := range specs {
		for _, d := range s.DependsOn {
			j := declared[d]
			indeg[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	done := make([]bool, len(specs))
	order := make([]int, 0, len(specs))
	for len(order) < len(specs) {
		next := -1
		for i := range specs {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			for i := range specs {
				if !done[i] {
					return nil, fmt.Errorf("%w: involving %q", ErrUpdaterCycle, specs[i].Name)
				}
			}
		}
		done[next] = true
		order = append(order, next)
		for _, j := range dependents[next] {
			indeg[j]--
		}
	}
	return order, nil
}

func (r *Registry) trackAttribute(attr string) int {
	if i, ok := r.attrIndex[attr]; ok {
		return i
	}
	r.attrIndex[attr] = len(r.attrs)
	r.attrs = append(r.attrs, attr)
	return len(r.attrs) - 1
}

// Names returns the updater names in evaluation order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

func (r *Registry) Len() int {
	return len(r.specs)
}

// aggregate. incrementally maintained sums of one district. immutable once built; a flip builds new
// aggregates for the two affected districts only.
type aggregate struct {
	sums  []float64
	numer []float64
	hists []map[string]float64
}

func (r *Registry) emptyAggregate() *aggregate {
	agg := &aggregate{
		sums:  make([]float64, len(r.attrs)),
		numer: make([]float64, len(r.numer)),
		hists: make([]map[string]float64, len(r.histAttrs)),
	}
	for i := range agg.hists {
		agg.hists[i] = make(map[string]float64)
	}
	return agg
}

// add accumulates node u with sign +1 (join) or -1 (leave) in place. only called on aggregates that
// are not yet visible to any partition.
func (r *Registry) add(agg *aggregate, g *da.Graph, u da.Index, sign float64) {
	for i, attr := range r.attrs {
		agg.sums[i] += sign * g.GetAttribute(u, attr)
	}
	for i, nm := range r.numer {
		agg.numer[i] += sign * g.GetAttribute(u, nm.attr) * g.GetAttribute(u, nm.weight)
	}
	for i, attr := range r.histAttrs {
		cat := category(g, u, attr)
		agg.hists[i][cat] += sign
		if agg.hists[i][cat] == 0 {
			delete(agg.hists[i], cat)
		}
	}
}

func (r *Registry) cloneAggregate(agg *aggregate) *aggregate {
	out := &aggregate{
		sums:  append([]float64(nil), agg.sums...),
		numer: append([]float64(nil), agg.numer...),
		hists: make([]map[string]float64, len(agg.hists)),
	}
	for i, h := range agg.hists {
		out.hists[i] = make(map[string]float64, len(h))
		for k, v := range h {
			out.hists[i][k] = v
		}
	}
	return out
}

// category. label value if the node has one, otherwise the numeric attribute as text.
func category(g *da.Graph, u da.Index, attr string) string {
	if l, ok := g.LookupLabel(u, attr); ok {
		return l
	}
	if v, ok := g.LookupAttribute(u, attr); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// evaluate computes every updater of one district in dependency order.
func (r *Registry) evaluate(agg *aggregate) []Value {
	values := make([]Value, len(r.specs))
	for i, s := range r.specs {
		switch s.Kind {
		case Tally:
			values[i] = Number(agg.sums[r.slot[i]])
		case WeightedMean:
			den := agg.sums[r.weightIdx[i]]
			if den == 0 {
				values[i] = Number(0)
			} else {
				values[i] = Number(agg.numer[r.slot[i]] / den)
			}
		case Histogram:
			values[i] = HistogramValue(agg.hists[r.slot[i]])
		case Derived:
			deps := make([]Value, len(r.deps[i]))
			for j, d := range r.deps[i] {
				deps[j] = values[d]
			}
			values[i] = s.Derive(deps)
		}
	}
	return values
}
