package storage

import (
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"go.uber.org/zap"
)

type Config struct {
	// Path. directory of the database, ignored when InMemory.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// badgerLogger routes badger's internal logging to zap.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, util.WrapErrorf(err, util.ErrIO, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrIO, "open badger database %s", cfg.Path)
	}
	return db, nil
}
