package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/geo"
	"github.com/lintang-b-s/Districtx/pkg/metrics"
	"github.com/lintang-b-s/Districtx/pkg/neighbor"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/partitioner"
	"github.com/lintang-b-s/Districtx/pkg/report"
	"github.com/lintang-b-s/Districtx/pkg/search"
	"github.com/lintang-b-s/Districtx/pkg/storage"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Engine. one districting run: the prepared tract graph, the crossover updaters and the run parameters.
type Engine struct {
	cfg      *util.RunConfig
	graph    *da.Graph
	attrs    neighbor.VoteAttributes
	registry *partition.Registry
	metrics  *metrics.SearchMetrics
	logger   *zap.Logger
}

// RunResult. what a run produced. Final is the partition the search stopped at.
type RunResult struct {
	Initial *partition.Partition
	Final   *partition.Partition
	Search  search.Result[*partition.Partition]
	Summary []report.DistrictSummary
}

func NewEngine(cfg *util.RunConfig, logger *zap.Logger, reg prometheus.Registerer) (*Engine, error) {
	logger.Info("Reading graph from ", zap.String("graphFilePath", cfg.GraphPath))
	graph, err := da.ReadGraph(cfg.GraphPath)
	if err != nil {
		return nil, err
	}
	return NewEngineWithGraph(cfg, graph, logger, reg)
}

// NewEngineWithGraph prepares graph for the run: islands are bridged (or rejected when repair is off)
// and the minority classification and vote attributes are derived.
func NewEngineWithGraph(cfg *util.RunConfig, graph *da.Graph, logger *zap.Logger, reg prometheus.Registerer,
) (*Engine, error) {
	if !graph.IsConnected() {
		if !cfg.RepairIslands {
			return nil, fmt.Errorf("%w: %d components", da.ErrGraphDisconnected, len(graph.ConnectedComponents()))
		}
		bridges := graph.RepairIslands(logger)
		logger.Info("bridged islands", zap.Int("edges_added", len(bridges)))
	}

	attrs := VoteAttributes(cfg)
	neighbor.PrepareVotes(graph, attrs, cfg.MinorityClassCutoff, cfg.CrossoverPercent, cfg.SynthesizeVotes)

	registry, err := partition.NewRegistry(neighbor.CrossoverUpdaters(attrs)...)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	logger.Info("graph ready",
		zap.Int("tracts", graph.NumberOfVertices()),
		zap.Int("adjacencies", graph.NumberOfEdges()),
		zap.Float64("population", graph.TotalAttribute(attrs.Population)))

	return &Engine{
		cfg:      cfg,
		graph:    graph,
		attrs:    attrs,
		registry: registry,
		metrics:  metrics.NewSearchMetrics(reg),
		logger:   logger,
	}, nil
}

// VoteAttributes. the configured attribute names, derived attributes keep their default names.
func VoteAttributes(cfg *util.RunConfig) neighbor.VoteAttributes {
	attrs := neighbor.DefaultVoteAttributes()
	attrs.Population = cfg.PopulationAttribute
	attrs.Class = cfg.ClassAttribute
	attrs.MinorityVotes = cfg.MinorityVotesAttribute
	attrs.MajorityVotes = cfg.MajorityVotesAttribute
	return attrs
}

func (e *Engine) GetGraph() *da.Graph {
	return e.graph
}

func (e *Engine) GetRegistry() *partition.Registry {
	return e.registry
}

// InitialPartition seeds the search with the configured initial method. generated assignments must
// produce exactly n_districts districts, assignments read from data keep the count they carry.
func (e *Engine) InitialPartition(ctx context.Context) (*partition.Partition, error) {
	var (
		assignment map[da.Index]partition.DistrictID
		opts       partition.AssignOptions
		err        error
	)

	switch e.cfg.InitialMethod {
	case util.INITIAL_EXISTING:
		assignment, err = partitioner.FromAttribute(e.graph, e.cfg.AssignmentAttribute)
	case util.INITIAL_BISECTION:
		rb := partitioner.NewRecursiveBisection(e.graph, e.cfg.NDistricts, e.attrs.Population, e.logger)
		rb.SetWorkers(e.cfg.Workers)
		if err = rb.Partition(allNodes(e.graph)); err == nil {
			assignment = rb.Assignment()
		}
		opts = partition.AssignOptions{MinDistricts: e.cfg.NDistricts, MaxDistricts: e.cfg.NDistricts}
	case util.INITIAL_GREEDY:
		sg := partitioner.NewSeededGreedy(e.graph, partitioner.GreedyOptions{
			Districts:              e.cfg.NDistricts,
			MinSeedDistance:        e.cfg.MinSeedDistance,
			ClassAttribute:         e.attrs.Class,
			MinorityVotesAttribute: e.attrs.MinorityVotes,
			MajorityVotesAttribute: e.attrs.MajorityVotes,
		}, e.logger)
		assignment, err = sg.Partition()
		opts = partition.AssignOptions{MinDistricts: e.cfg.NDistricts, MaxDistricts: e.cfg.NDistricts}
	case util.INITIAL_OVERLAP, util.INITIAL_CONTAINMENT:
		assignment, err = e.assignFromGeometry(ctx)
	default:
		err = util.WrapErrorf(nil, util.ErrBadParamInput, "unknown initial method %q", e.cfg.InitialMethod)
	}
	if err != nil {
		return nil, err
	}

	p, err := partition.Assign(e.graph, e.registry, assignment, opts)
	if err != nil {
		return nil, err
	}
	e.logger.Info("initial partition",
		zap.String("method", e.cfg.InitialMethod),
		zap.Int("districts", p.NumDistricts()),
		zap.Int("cut_edges", p.NumCutEdges()))
	return p, nil
}

func allNodes(g *da.Graph) []da.Index {
	nodes := make([]da.Index, g.NumberOfVertices())
	for i := range nodes {
		nodes[i] = da.Index(i)
	}
	return nodes
}

func (e *Engine) assignFromGeometry(ctx context.Context) (map[da.Index]partition.DistrictID, error) {
	units, err := e.readUnits()
	if err != nil {
		return nil, err
	}
	regions, err := e.readRegions()
	if err != nil {
		return nil, err
	}

	if e.cfg.InitialMethod == util.INITIAL_CONTAINMENT {
		return partitioner.AssignByContainment(units, regions, e.logger)
	}

	if e.cfg.CacheDir == "" {
		return partitioner.OverlapHeuristic(ctx, units, regions, nil, e.logger)
	}
	dbConfig := storage.DefaultConfig(e.cfg.CacheDir)
	dbConfig.Logger = e.logger
	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	namespace, err := overlapNamespace(e.graph, e.cfg.UnitsGeoJSON, e.cfg.RegionsGeoJSON)
	if err != nil {
		return nil, err
	}
	cache := storage.NewAssignmentCache(db, namespace, e.logger)
	return partitioner.OverlapHeuristic(ctx, units, regions, cache, e.logger)
}

/*
overlapNamespace. cache namespace of an overlap assignment. cached entries are keyed by node index, so
the fingerprint covers the geoid of every node in index order and the bytes of both geojson files. a
rebuilt graph or an edited file under the same name gets a fresh namespace.
*/
func overlapNamespace(g *da.Graph, unitsPath, regionsPath string) (string, error) {
	h := xxhash.New()
	g.ForEachVertices(func(v *da.Vertex) {
		h.WriteString(v.GetGeoID())
		h.Write([]byte{0})
	})
	for _, path := range []string{unitsPath, regionsPath} {
		f, err := os.Open(path)
		if err != nil {
			return "", util.WrapErrorf(err, util.ErrIO, "open %s", path)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", util.WrapErrorf(err, util.ErrIO, "read %s", path)
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("overlap/%s/%s/%016x", filepath.Base(unitsPath), filepath.Base(regionsPath), h.Sum64()), nil
}

// readUnits matches tract polygons to graph nodes through unit_id_property. every node needs a polygon.
func (e *Engine) readUnits() ([]partitioner.Unit, error) {
	fc, err := geo.ReadFeatureCollection(e.cfg.UnitsGeoJSON)
	if err != nil {
		return nil, err
	}

	units := make([]partitioner.Unit, 0, len(fc.Features))
	seen := make(map[da.Index]struct{}, len(fc.Features))
	unknown := 0
	for _, f := range fc.Features {
		id := geo.FeatureID(f, e.cfg.UnitIDProperty)
		u, ok := e.graph.GetVertexByGeoID(id)
		if !ok {
			unknown++
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		units = append(units, partitioner.Unit{Node: u, Geometry: f.Geometry})
	}
	if unknown > 0 {
		e.logger.Warn("unit polygons without a tract in the graph", zap.Int("features", unknown))
	}
	if len(units) != e.graph.NumberOfVertices() {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "%s covers %d of %d tracts",
			e.cfg.UnitsGeoJSON, len(units), e.graph.NumberOfVertices())
	}
	return units, nil
}

// readRegions. region ids come from the assignment_attribute property, the feature position otherwise.
func (e *Engine) readRegions() ([]partitioner.Region, error) {
	fc, err := geo.ReadFeatureCollection(e.cfg.RegionsGeoJSON)
	if err != nil {
		return nil, err
	}
	regions := make([]partitioner.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := partition.DistrictID(i)
		if v, ok := geo.NumericProperties(f)[e.cfg.AssignmentAttribute]; ok {
			id = partition.DistrictID(math.Round(v))
		}
		regions = append(regions, partitioner.Region{ID: id, Geometry: f.Geometry})
	}
	return regions, nil
}

// Search runs the hill climb from initial under the configured objective and constraints.
func (e *Engine) Search(ctx context.Context, initial *partition.Partition) (search.Result[*partition.Partition], error) {
	objective := neighbor.CrossoverObjective(neighbor.UpdaterMinorityVotes, neighbor.UpdaterMajorityVotes)
	if e.cfg.Objective == util.OBJECTIVE_BALANCE {
		objective = neighbor.BalanceObjective(neighbor.UpdaterMinorityVotes, neighbor.UpdaterMajorityVotes)
	}

	var constraints []neighbor.Constraint
	if e.cfg.PopulationTolerance > 0 {
		constraints = append(constraints,
			neighbor.WithinPopulationTolerance(initial, e.attrs.Population, e.cfg.PopulationTolerance))
	}
	if e.cfg.CutEdgeFactor > 0 {
		constraints = append(constraints, neighbor.CutEdgeUpperBound(initial, e.cfg.CutEdgeFactor))
	}
	if e.cfg.EnforceContiguity {
		constraints = append(constraints, neighbor.Contiguous())
	}

	adapter := neighbor.NewAdapter(objective,
		neighbor.WithConstraints(constraints...),
		neighbor.WithWorkers(e.cfg.Workers),
		neighbor.WithLogger(e.logger))

	return search.HillClimb(ctx, initial, adapter.Successors,
		neighbor.CrossoverGoal(e.cfg.GoalFraction, neighbor.UpdaterCrossover),
		adapter.Score, adapter.Hasher(),
		search.WithMaxDepth(e.cfg.MaxDepth),
		search.WithProgressInterval(e.cfg.ProgressInterval),
		search.WithLogger(e.logger),
		search.WithMetrics(e.metrics))
}

/*
Run seeds, searches and persists one districting. a cancelled search still writes the best partition
visited so far and returns the context error next to the result.
*/
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	initial, err := e.InitialPartition(ctx)
	if err != nil {
		return nil, err
	}

	res, searchErr := e.Search(ctx, initial)
	if searchErr != nil && !errors.Is(searchErr, context.Canceled) && !errors.Is(searchErr, context.DeadlineExceeded) {
		return nil, searchErr
	}
	final := res.State
	if final == nil {
		final = initial
	}

	summary, err := report.Summarize(final)
	if err != nil {
		return nil, err
	}
	if err := storage.WritePartition(e.cfg.OutputPath, final); err != nil {
		return nil, err
	}
	e.logger.Info("partition written", zap.String("path", e.cfg.OutputPath),
		zap.String("reason", res.Stats.Reason.String()), zap.Float64("score", res.Score))

	return &RunResult{Initial: initial, Final: final, Search: res, Summary: summary}, searchErr
}
