package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/gene"
	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/metrics"
)

// fakeLookup answers from a fixed table. Names missing from the table fail
// with ErrNoMatch; names in errs fail with that error.
type fakeLookup struct {
	mu       sync.Mutex
	hits     map[string][]lookup.Hit
	errs     map[string]error
	delays   map[string]time.Duration
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		hits:   make(map[string][]lookup.Hit),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

func (f *fakeLookup) add(name, chrom string, start, stop int64) {
	f.hits[name] = []lookup.Hit{{Name: name, Chrom: chrom, Start: start, Stop: stop}}
}

func (f *fakeLookup) Lookup(ctx context.Context, name string, asm assembly.Assembly) ([]lookup.Hit, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[name]++
	delay := f.delays[name]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if hits, ok := f.hits[name]; ok {
		return hits, nil
	}
	return nil, lookup.ErrNoMatch
}

func TestResolve_AllResolved(t *testing.T) {
	fl := newFakeLookup()
	fl.add("BRCA1", "chr17", 43044295, 43125483)
	fl.add("KRAS", "chr12", 25205246, 25250929)
	fl.add("EGFR", "7", 55019017, 55211628)

	res, err := NewResolver(fl).Resolve(context.Background(), []string{"BRCA1", "KRAS", "EGFR"}, assembly.GRCh38)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Submitted)
	assert.Empty(t, res.Failures)
	assert.ElementsMatch(t, []string{"BRCA1", "KRAS", "EGFR"}, gene.Names(res.Annotations))
	for _, a := range res.Annotations {
		assert.NotContains(t, a.Chr, "chr", "chromosome of %s", a.Name)
	}
}

func TestResolve_MixedBatch(t *testing.T) {
	fl := newFakeLookup()
	fl.add("BRCA1", "chr17", 43044295, 43125483)
	fl.add("KRAS", "chr12", 25205246, 25250929)
	fl.errs["BROKEN"] = errors.New("connection reset")
	fl.errs["NOHITS"] = lookup.ErrNoHits

	res, err := NewResolver(fl).Resolve(context.Background(),
		[]string{"BROKEN", "BRCA1", "TYPO1", "NOHITS", "KRAS"}, assembly.GRCh38)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"BRCA1", "KRAS"}, gene.Names(res.Annotations))
	require.Len(t, res.Failures, 3)
	failed := make([]string, 0, 3)
	for _, f := range res.Failures {
		failed = append(failed, f.Name)
		assert.Error(t, f.Err)
	}
	assert.ElementsMatch(t, []string{"BROKEN", "TYPO1", "NOHITS"}, failed)
}

func TestResolve_AllFail(t *testing.T) {
	fl := newFakeLookup()
	fl.errs["A"] = errors.New("timeout")

	res, err := NewResolver(fl).Resolve(context.Background(), []string{"A", "B", "C"}, assembly.GRCh38)
	require.NoError(t, err)
	assert.NotNil(t, res.Annotations)
	assert.Empty(t, res.Annotations)
	assert.Len(t, res.Failures, 3)
}

func TestResolve_EmptyBatch(t *testing.T) {
	res, err := NewResolver(newFakeLookup()).Resolve(context.Background(), nil, assembly.GRCh38)
	require.NoError(t, err)
	assert.Zero(t, res.Submitted)
	assert.Empty(t, res.Annotations)
}

func TestResolve_DeduplicatesBeforeLookup(t *testing.T) {
	fl := newFakeLookup()
	fl.add("TP53", "chr17", 7661779, 7687538)

	res, err := NewResolver(fl).Resolve(context.Background(), []string{"TP53", "TP53", "TP53"}, assembly.GRCh38)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Submitted)
	assert.Equal(t, []string{"TP53"}, gene.Names(res.Annotations))
	assert.Equal(t, 1, fl.calls["TP53"])
}

func TestResolve_SettlementOrder(t *testing.T) {
	fl := newFakeLookup()
	fl.add("SLOW", "chr1", 1, 2)
	fl.add("FAST", "chr2", 3, 4)
	fl.delays["SLOW"] = 100 * time.Millisecond

	res, err := NewResolver(fl).Resolve(context.Background(), []string{"SLOW", "FAST"}, assembly.GRCh38)
	require.NoError(t, err)
	assert.Equal(t, []string{"FAST", "SLOW"}, gene.Names(res.Annotations))
}

func TestResolve_OrderedFollowsSubmission(t *testing.T) {
	fl := newFakeLookup()
	fl.add("SLOW", "chr1", 1, 2)
	fl.add("FAST", "chr2", 3, 4)
	fl.delays["SLOW"] = 100 * time.Millisecond

	r := NewResolver(fl)
	r.SetOrdered(true)
	res, err := r.Resolve(context.Background(), []string{"SLOW", "FAST"}, assembly.GRCh38)
	require.NoError(t, err)
	assert.Equal(t, []string{"SLOW", "FAST"}, gene.Names(res.Annotations))
}

func TestResolve_ConcurrencyLimit(t *testing.T) {
	fl := newFakeLookup()
	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("G%d", i)
		fl.add(names[i], "chr1", int64(i), int64(i+1))
		fl.delays[names[i]] = 10 * time.Millisecond
	}

	r := NewResolver(fl)
	r.SetConcurrency(3)
	res, err := r.Resolve(context.Background(), names, assembly.GRCh38)
	require.NoError(t, err)
	assert.Len(t, res.Annotations, 20)
	assert.LessOrEqual(t, fl.maxSeen.Load(), int32(3))
}

func TestResolve_FullFanOut(t *testing.T) {
	fl := newFakeLookup()
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("G%d", i)
		fl.add(names[i], "chr1", int64(i), int64(i+1))
		fl.delays[names[i]] = 50 * time.Millisecond
	}

	start := time.Now()
	res, err := NewResolver(fl).Resolve(context.Background(), names, assembly.GRCh38)
	require.NoError(t, err)
	assert.Len(t, res.Annotations, 10)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

type panickyLookup struct{ *fakeLookup }

func (p *panickyLookup) Lookup(ctx context.Context, name string, asm assembly.Assembly) ([]lookup.Hit, error) {
	if name == "BOOM" {
		panic("nil map")
	}
	return p.fakeLookup.Lookup(ctx, name, asm)
}

func TestResolve_LookupPanicIsFailure(t *testing.T) {
	pl := &panickyLookup{fakeLookup: newFakeLookup()}
	pl.add("KRAS", "chr12", 1, 2)

	res, err := NewResolver(pl).Resolve(context.Background(), []string{"BOOM", "KRAS"}, assembly.GRCh38)
	require.NoError(t, err)
	assert.Equal(t, []string{"KRAS"}, gene.Names(res.Annotations))
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Err.Error(), "panicked")
}

type emptyLookup struct{}

func (emptyLookup) Lookup(context.Context, string, assembly.Assembly) ([]lookup.Hit, error) {
	return []lookup.Hit{}, nil
}

func TestResolve_EmptyHitListIsUnresolved(t *testing.T) {
	res, err := NewResolver(emptyLookup{}).Resolve(context.Background(), []string{"X"}, assembly.GRCh38)
	require.NoError(t, err)
	assert.Empty(t, res.Annotations)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, lookup.ErrNoMatch)
}

func TestResolve_UnknownAssembly(t *testing.T) {
	_, err := NewResolver(newFakeLookup()).Resolve(context.Background(), []string{"KRAS"}, assembly.Assembly("hg18"))
	assert.ErrorIs(t, err, lookup.ErrUnknownAssembly)
}

func TestResolve_ContextCanceled(t *testing.T) {
	fl := newFakeLookup()
	fl.add("KRAS", "chr12", 1, 2)
	fl.delays["KRAS"] = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewResolver(fl).Resolve(ctx, []string{"KRAS"}, assembly.GRCh38)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolve_Metrics(t *testing.T) {
	fl := newFakeLookup()
	fl.add("KRAS", "chr12", 1, 2)
	fl.errs["NOHITS"] = lookup.ErrNoHits
	fl.errs["DOWN"] = &lookup.StatusError{StatusCode: 503}

	m := metrics.NewCollector("test")
	r := NewResolver(fl)
	r.SetMetrics(m)

	_, err := r.Resolve(context.Background(), []string{"KRAS", "TYPO", "NOHITS", "DOWN"}, assembly.GRCh38)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.OutcomeResolved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.OutcomeNoMatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.OutcomeNoHits)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.OutcomeError)))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, Dedupe([]string{"A", "B", "A", "C", "B"}))
	assert.Equal(t, []string{}, Dedupe(nil))
}
