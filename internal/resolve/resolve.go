// Package resolve turns a batch of gene names into positioned annotations by
// querying the annotation service for every name concurrently.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/gene"
	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/metrics"
)

// Failure records a gene name that did not resolve and why.
type Failure struct {
	Name string
	Err  error
}

// Result is the outcome of one resolution batch.
type Result struct {
	Submitted   int               // distinct names looked up
	Annotations []gene.Annotation // one per resolved name, in collection order
	Failures    []Failure
	Elapsed     time.Duration
}

// Resolver resolves gene-name batches against a Lookuper.
type Resolver struct {
	lookup      lookup.Lookuper
	concurrency int
	ordered     bool
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewResolver creates a resolver with unlimited fan-out that collects
// results in settlement order.
func NewResolver(l lookup.Lookuper) *Resolver {
	return &Resolver{
		lookup: l,
		logger: zap.NewNop(),
	}
}

// SetConcurrency bounds the number of in-flight lookups. Zero or less means
// every lookup is issued at once.
func (r *Resolver) SetConcurrency(n int) {
	r.concurrency = n
}

// SetOrdered makes results follow submission order instead of settlement order.
func (r *Resolver) SetOrdered(ordered bool) {
	r.ordered = ordered
}

// SetLogger sets the logger for per-gene failures and batch summaries.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// SetMetrics sets the collector for lookup outcomes.
func (r *Resolver) SetMetrics(m *metrics.Collector) {
	r.metrics = m
}

// Resolve looks up every distinct name in names on asm and waits for all
// lookups to settle. Individual lookup failures never fail the batch; they are
// reported in Result.Failures. An error is returned only for batch-level
// problems: an unsupported assembly or a context that ended before the batch
// settled.
func (r *Resolver) Resolve(ctx context.Context, names []string, asm assembly.Assembly) (Result, error) {
	if !asm.Valid() {
		return Result{}, fmt.Errorf("%w: %q", lookup.ErrUnknownAssembly, asm)
	}

	start := time.Now()
	distinct := Dedupe(names)
	res := Result{
		Submitted:   len(distinct),
		Annotations: []gene.Annotation{},
	}
	seen := make(map[string]bool, len(distinct))

	collect := SettledCollect
	if r.ordered {
		collect = OrderedCollect
	}

	_ = collect(r.fanOut(ctx, distinct, asm), func(o Outcome) error {
		if o.Err != nil {
			res.Failures = append(res.Failures, Failure{Name: o.Name, Err: o.Err})
			r.metrics.ObserveLookup(outcomeLabel(o.Err))
			r.logger.Debug("gene not resolved",
				zap.String("gene", o.Name),
				zap.Error(o.Err))
			return nil
		}

		ann := fromHit(o.Hits[0])
		if seen[ann.Name] {
			return nil
		}
		seen[ann.Name] = true
		res.Annotations = append(res.Annotations, ann)
		r.metrics.ObserveLookup(metrics.OutcomeResolved)
		return nil
	})
	res.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("resolution batch interrupted: %w", err)
	}

	r.logger.Info("resolution batch settled",
		zap.String("assembly", asm.String()),
		zap.Int("submitted", res.Submitted),
		zap.Int("resolved", len(res.Annotations)),
		zap.Int("failed", len(res.Failures)),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}

// Dedupe returns names with repeats removed, keeping first occurrences in order.
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func fromHit(h lookup.Hit) gene.Annotation {
	return gene.New(h.Name, h.Chrom, h.Start, h.Stop)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, lookup.ErrNoMatch):
		return metrics.OutcomeNoMatch
	case errors.Is(err, lookup.ErrNoHits):
		return metrics.OutcomeNoHits
	default:
		return metrics.OutcomeError
	}
}
