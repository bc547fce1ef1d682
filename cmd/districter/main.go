package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/Districtx/pkg/engine"
	"github.com/lintang-b-s/Districtx/pkg/logger"
	"github.com/lintang-b-s/Districtx/pkg/report"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "./data/config.yaml", "run configuration file (yaml)")
	yamlOnly   = flag.Bool("yaml", false, "print the district summary as yaml instead of a table")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		logger.Fatal("read config", zap.String("path", *configPath), zap.Error(err))
	}
	cfg, err := util.LoadRunConfig(v)
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	districter, err := engine.NewEngine(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("prepare graph", zap.Error(err))
	}

	res, err := districter.Run(ctx)
	if err != nil && (res == nil || !errors.Is(err, context.Canceled)) {
		logger.Fatal("districting run failed", zap.Error(err))
	}
	if err != nil {
		logger.Warn("search interrupted, best partition so far was written")
	}

	if *yamlOnly {
		err = report.WriteYAML(os.Stdout, res.Summary)
	} else {
		err = report.WriteTable(os.Stdout, res.Summary)
	}
	if err != nil {
		logger.Fatal("print summary", zap.Error(err))
	}

	if cfg.SummaryPath != "" {
		f, err := os.Create(cfg.SummaryPath)
		if err != nil {
			logger.Fatal("create summary file", zap.String("path", cfg.SummaryPath), zap.Error(err))
		}
		defer f.Close()
		if err := report.WriteYAML(f, res.Summary); err != nil {
			logger.Fatal("write summary", zap.Error(err))
		}
	}

	logger.Info("Districtx run finished",
		zap.Int("districts", res.Final.NumDistricts()),
		zap.Int("expansions", res.Search.Stats.Expansions),
		zap.String("reason", res.Search.Stats.Reason.String()))
}
