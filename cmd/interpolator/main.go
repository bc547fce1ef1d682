package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lintang-b-s/Districtx/pkg/geo"
	"github.com/lintang-b-s/Districtx/pkg/interpolate"
	"github.com/lintang-b-s/Districtx/pkg/logger"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	sourcePath    = flag.String("source", "", "source GeoJSON feature collection holding the columns")
	targetPath    = flag.String("target", "", "target GeoJSON feature collection receiving the columns")
	outputPath    = flag.String("output", "./data/interpolated.geojson", "output GeoJSON path")
	columns       = flag.String("columns", "", "comma separated source columns")
	targetColumns = flag.String("target_columns", "", "comma separated names of the new target columns, defaults to -columns")
	weight        = flag.String("weight", "", "target attribute to split values by instead of intersection area")
	mode          = flag.String("mode", "fractional", "fractional or winner-take-all")
	round         = flag.Bool("round", false, "round every column to integers preserving its total")
	geodesic      = flag.Bool("geodesic", false, "coordinates are lon/lat degrees")
	idProperty    = flag.String("id_property", "GEOID", "feature property used as feature id")
	workers       = flag.Int("workers", 4, "number of goroutines computing overlaps")
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *sourcePath == "" || *targetPath == "" {
		logger.Fatal("both -source and -target are required")
	}
	interpolationMode, err := interpolate.ParseMode(*mode)
	if err != nil {
		logger.Fatal("invalid mode", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sources, targets *geojson.FeatureCollection
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sources, err = geo.ReadFeatureCollection(*sourcePath)
		return err
	})
	eg.Go(func() error {
		var err error
		targets, err = geo.ReadFeatureCollection(*targetPath)
		return err
	})
	if err := eg.Wait(); err != nil {
		logger.Fatal("read feature collections", zap.Error(err))
	}

	opts := interpolate.Options{
		SourceColumns:         splitList(*columns),
		TargetColumns:         splitList(*targetColumns),
		WeightAttribute:       *weight,
		Mode:                  interpolationMode,
		RoundPreservingTotals: *round,
		Geodesic:              *geodesic,
		Workers:               *workers,
	}
	out, err := interpolate.Interpolate(ctx,
		interpolate.FromFeatureCollection(sources, *idProperty),
		interpolate.FromFeatureCollection(targets, *idProperty),
		opts, logger)
	if err != nil {
		logger.Fatal("interpolate", zap.Error(err))
	}

	newColumns := opts.TargetColumns
	if len(newColumns) == 0 {
		newColumns = opts.SourceColumns
	}
	fc, err := interpolate.ToFeatureCollection(targets, out, newColumns)
	if err != nil {
		logger.Fatal("build output", zap.Error(err))
	}
	if err := geo.WriteFeatureCollection(*outputPath, fc); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
	logger.Info("interpolated columns written", zap.String("path", *outputPath), zap.Strings("columns", newColumns))
}
