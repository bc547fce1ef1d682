package partitioner

import (
	"math"
	"sort"

	"github.com/lintang-b-s/Districtx/pkg/concurrent"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
)

type minCutJob struct {
	index    int
	slope    float64
	diagonal bool
	line     []float64
}

func newMinCutJob(index int, slope float64, diagonal bool, line []float64) minCutJob {
	return minCutJob{index: index, slope: slope, diagonal: diagonal, line: line}
}

func (mj minCutJob) GetSlope() float64 {
	return mj.slope
}

func (mj minCutJob) isDiagonal() bool {
	return mj.diagonal
}

func (mj minCutJob) getLine() []float64 {
	return mj.line
}

type minCutResult struct {
	job int
	cut *MinCut
}

type inertialFlow struct {
	graph   *partitionGraph
	workers int
}

func NewInertialFlow(graph *partitionGraph, workers int) *inertialFlow {
	return &inertialFlow{graph: graph, workers: workers}
}

func (inf *inertialFlow) getPartitionGraph() *partitionGraph {
	return inf.graph
}

/*
computeInertialFlowDinic. one min cut per projection line, the best one has the fewest cut edges, then
the population of side one closest to ratio*total, then the lowest line index.
ratio is the population share wanted on the source side.
*/
func (inf *inertialFlow) computeInertialFlowDinic(ratio, slack float64) *MinCut {
	lines := make([]minCutJob, 0, INERTIAL_FLOW_ITERATION+5)
	for i := 0; i < INERTIAL_FLOW_ITERATION; i++ {
		slope := -1 + float64(i)*(2.0/INERTIAL_FLOW_ITERATION)
		lines = append(lines, newMinCutJob(len(lines), slope, false, nil))
	}
	for _, line := range [][]float64{{1, 0}, {0, 1}, {1, 1}, {1, -1}, {-1, 1}} {
		lines = append(lines, newMinCutJob(len(lines), 0, true, line))
	}

	wpInertialFlow := concurrent.NewWorkerPool[minCutJob, minCutResult](inf.workers, len(lines))
	for _, job := range lines {
		wpInertialFlow.AddJob(job)
	}

	computeMinCut := func(input minCutJob) minCutResult {
		dn := NewDinicMaxFlow(inf.getPartitionGraph().Clone())
		var projection func(v partitionVertex) float64
		if !input.isDiagonal() {
			slope := input.GetSlope()
			projection = func(v partitionVertex) float64 {
				return slope*v.lon + (1.0-math.Abs(slope))*v.lat
			}
		} else {
			line := input.getLine()
			projection = func(v partitionVertex) float64 {
				return line[0]*v.lon + line[1]*v.lat
			}
		}
		sources, sinks := dn.selectSourcesAndSinks(projection, ratio, slack)
		s, t := dn.createArtificialSourceSink(sources, sinks)
		return minCutResult{job: input.index, cut: dn.ComputeMaxflowMinCut(s, t)}
	}

	wpInertialFlow.Close()
	wpInertialFlow.Start(computeMinCut)
	wpInertialFlow.Wait()

	target := ratio * inf.graph.totalWeight()
	balanceDelta := func(mc *MinCut) float64 {
		return math.Abs(mc.GetWeightOne() - target)
	}

	var best *minCutResult
	for res := range wpInertialFlow.CollectResults() {
		res := res
		if best == nil {
			best = &res
			continue
		}
		switch {
		case res.cut.GetMinCut() != best.cut.GetMinCut():
			if res.cut.GetMinCut() < best.cut.GetMinCut() {
				best = &res
			}
		case balanceDelta(res.cut) != balanceDelta(best.cut):
			if balanceDelta(res.cut) < balanceDelta(best.cut) {
				best = &res
			}
		case res.job < best.job:
			best = &res
		}
	}
	return best.cut
}

// sortVerticesByProjection returns the vertex ids ordered by projection, ties by id.
func (dn *DinicMaxFlow) sortVerticesByProjection(projection func(v partitionVertex) float64) []da.Index {
	n := dn.graph.NumberOfVertices()
	type item struct {
		id         da.Index
		projection float64
	}
	items := make([]item, n)
	for i := 0; i < n; i++ {
		v := dn.graph.GetVertex(da.Index(i))
		items[i] = item{id: v.GetID(), projection: projection(v)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].projection < items[j].projection
	})
	ids := make([]da.Index, n)
	for i, it := range items {
		ids[i] = it.id
	}
	return ids
}

/*
selectSourcesAndSinks. sources are the lowest projected vertices holding up to ratio*(1-slack) of the
population, sinks the highest holding up to (1-ratio)*(1-slack). both sets get at least one vertex and
never overlap. when the graph carries no population every vertex weighs 1.
*/
func (dn *DinicMaxFlow) selectSourcesAndSinks(projection func(v partitionVertex) float64, ratio, slack float64) ([]da.Index, []da.Index) {
	order := dn.sortVerticesByProjection(projection)
	n := len(order)

	total := dn.graph.totalWeight()
	weight := func(u da.Index) float64 {
		if total <= 0 {
			return 1
		}
		return dn.graph.GetVertex(u).weight
	}
	if total <= 0 {
		total = float64(n)
	}

	sourceBudget := ratio * (1 - slack) * total
	sinkBudget := (1 - ratio) * (1 - slack) * total

	numSources := 0
	acc := 0.0
	for numSources < n-1 {
		w := weight(order[numSources])
		if numSources > 0 && acc+w > sourceBudget {
			break
		}
		acc += w
		numSources++
	}

	numSinks := 0
	acc = 0.0
	for numSources+numSinks < n {
		w := weight(order[n-1-numSinks])
		if numSinks > 0 && acc+w > sinkBudget {
			break
		}
		acc += w
		numSinks++
	}

	sources := append([]da.Index(nil), order[:numSources]...)
	sinks := append([]da.Index(nil), order[n-numSinks:]...)
	return sources, sinks
}

func (dn *DinicMaxFlow) createArtificialSourceSink(sourceNodes, sinkNodes []da.Index) (da.Index, da.Index) {
	artificialSource := dn.graph.addArtificialVertex()
	artificialSink := dn.graph.addArtificialVertex()

	for _, s := range sourceNodes {
		dn.graph.AddInfEdge(artificialSource, s)
	}
	for _, t := range sinkNodes {
		dn.graph.AddInfEdge(t, artificialSink)
	}
	return artificialSource, artificialSink
}
