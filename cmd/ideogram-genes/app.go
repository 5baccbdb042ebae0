package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/ideogram-genes/internal/config"
	"github.com/inodb/ideogram-genes/internal/duckdb"
	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/metrics"
	"github.com/inodb/ideogram-genes/internal/resolve"
)

const metricsNamespace = "ideogram_genes"

func newLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// pipeline is the lookup stack shared by the resolve and serve commands.
type pipeline struct {
	resolver *resolve.Resolver
	store    *duckdb.Store // nil when the hit cache is disabled
}

func newPipeline(cfg config.Config, logger *zap.Logger, m *metrics.Collector) (*pipeline, error) {
	client := lookup.NewClient(cfg.ServiceConfig())
	client.SetLogger(logger.Named("lookup"))
	client.SetRetries(cfg.Lookup.Retries, cfg.Lookup.RetryInitial)
	client.SetBreaker(cfg.BreakerConfig())

	p := &pipeline{}
	var l lookup.Lookuper = client
	if cfg.Cache.Enabled {
		store, err := duckdb.Open("")
		if err != nil {
			return nil, fmt.Errorf("opening hit cache: %w", err)
		}
		cached := lookup.NewCachedLookuper(client, store)
		cached.SetLogger(logger.Named("cache"))
		cached.SetMetrics(m)
		p.store = store
		l = cached
	}

	r := resolve.NewResolver(l)
	r.SetConcurrency(cfg.Lookup.Concurrency)
	r.SetOrdered(cfg.Lookup.Ordered)
	r.SetLogger(logger.Named("resolve"))
	r.SetMetrics(m)
	p.resolver = r
	return p, nil
}

func (p *pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
