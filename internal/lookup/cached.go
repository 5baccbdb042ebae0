package lookup

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/metrics"
)

// HitCache stores exact-name hits keyed by assembly and queried name.
// Only successful lookups are stored.
type HitCache interface {
	GetHits(ctx context.Context, asm assembly.Assembly, name string) ([]Hit, bool, error)
	PutHits(ctx context.Context, asm assembly.Assembly, name string, hits []Hit) error
}

// CachedLookuper answers lookups from a HitCache before asking next.
// Cache errors are logged and otherwise ignored.
type CachedLookuper struct {
	next    Lookuper
	cache   HitCache
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewCachedLookuper wraps next with cache.
func NewCachedLookuper(next Lookuper, cache HitCache) *CachedLookuper {
	return &CachedLookuper{
		next:   next,
		cache:  cache,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for cache errors.
func (c *CachedLookuper) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetMetrics sets the collector that counts cache hits and misses.
func (c *CachedLookuper) SetMetrics(m *metrics.Collector) {
	c.metrics = m
}

// Lookup implements Lookuper.
func (c *CachedLookuper) Lookup(ctx context.Context, name string, asm assembly.Assembly) ([]Hit, error) {
	hits, ok, err := c.cache.GetHits(ctx, asm, name)
	if err != nil {
		c.logger.Warn("hit cache read failed", zap.String("gene", name), zap.Error(err))
	}
	if ok && len(hits) > 0 {
		c.metrics.ObserveCache(true)
		return hits, nil
	}
	c.metrics.ObserveCache(false)

	hits, err = c.next.Lookup(ctx, name, asm)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutHits(ctx, asm, name, hits); err != nil {
		c.logger.Warn("hit cache write failed", zap.String("gene", name), zap.Error(err))
	}
	return hits, nil
}
