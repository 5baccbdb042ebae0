// Package session owns the viewer's state and applies resolution batches and
// gene selections to it, remounting the ideogram after every change.
//
// Batches resolve outside the session lock and are applied when they settle.
// Two overlapping batches are both applied, in settlement order, so the one
// that settles last wins. Nothing cancels the older batch.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/ingest"
	"github.com/inodb/ideogram-genes/internal/metrics"
	"github.com/inodb/ideogram-genes/internal/render"
	"github.com/inodb/ideogram-genes/internal/resolve"
	"github.com/inodb/ideogram-genes/internal/view"
)

// ErrBatchPanic wraps a panic recovered while resolving a batch.
var ErrBatchPanic = errors.New("resolution batch panicked")

// Resolver resolves a batch of gene names.
type Resolver interface {
	Resolve(ctx context.Context, names []string, asm assembly.Assembly) (resolve.Result, error)
}

// Batch describes one applied resolution batch.
type Batch struct {
	ID     string
	Source string // file name or other label; may be empty
	Result resolve.Result
	Err    error // batch-level failure; the state was reset
	State  view.State
}

// Session is the single source of truth for one viewer.
type Session struct {
	mu       sync.Mutex
	state    view.State
	resolver Resolver
	adapter  *render.Adapter
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// New creates a session starting from initial and mounts the initial
// (empty) ideogram.
func New(r Resolver, a *render.Adapter, initial view.State) (*Session, error) {
	s := &Session{
		state:    initial.Clone(),
		resolver: r,
		adapter:  a,
		logger:   zap.NewNop(),
	}
	if _, err := a.Sync(s.state); err != nil {
		return nil, fmt.Errorf("mount ideogram: %w", err)
	}
	return s, nil
}

// SetLogger sets the logger for batch and selection events.
func (s *Session) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetMetrics sets the collector for batch outcomes.
func (s *Session) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// State returns a copy of the current state.
func (s *Session) State() view.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Submit resolves names as one batch and applies the result. It never fails:
// a batch-level error resets the state and is reported in Batch.Err.
func (s *Session) Submit(ctx context.Context, names []string) Batch {
	return s.submit(ctx, "", names)
}

// SubmitReader reads a gene list from r and submits it as one batch.
func (s *Session) SubmitReader(ctx context.Context, source string, r io.Reader) (Batch, error) {
	names, err := ingest.Read(r)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", source, err)
	}
	return s.submit(ctx, source, names), nil
}

// SubmitFiles submits each file as its own batch, in order. Files are never
// merged. It stops at the first file that cannot be read.
func (s *Session) SubmitFiles(ctx context.Context, paths ...string) ([]Batch, error) {
	batches := make([]Batch, 0, len(paths))
	for _, path := range paths {
		names, err := ingest.ReadFile(path)
		if err != nil {
			return batches, err
		}
		batches = append(batches, s.submit(ctx, path, names))
	}
	return batches, nil
}

func (s *Session) submit(ctx context.Context, source string, names []string) Batch {
	b := Batch{ID: uuid.NewString(), Source: source}
	logger := s.logger.With(zap.String("batch", b.ID))
	if source != "" {
		logger = logger.With(zap.String("source", source))
	}

	s.mu.Lock()
	asm := s.state.Assembly
	s.mu.Unlock()

	logger.Debug("resolving batch", zap.Int("names", len(names)))
	start := time.Now()
	b.Result, b.Err = s.resolve(ctx, names, asm)

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Err != nil {
		logger.Error("resolution batch failed, resetting view", zap.Error(b.Err))
		s.state = view.Reset(s.state)
		s.metrics.ObserveBatch(metrics.BatchReset, time.Since(start))
	} else {
		s.state = view.Resolved(s.state, b.Result.Annotations)
		s.metrics.ObserveBatch(metrics.BatchApplied, time.Since(start))
	}
	s.syncLocked(logger)

	b.State = s.state.Clone()
	return b
}

func (s *Session) resolve(ctx context.Context, names []string, asm assembly.Assembly) (res resolve.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = resolve.Result{}
			err = fmt.Errorf("%w: %v", ErrBatchPanic, p)
		}
	}()
	return s.resolver.Resolve(ctx, names, asm)
}

// Select makes name the selected gene. A name outside the resolved list
// returns view.ErrUnknownGene and changes nothing.
func (s *Session) Select(name string) (view.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := view.Select(s.state, name)
	if err != nil {
		s.logger.Info("rejected gene selection", zap.String("gene", name))
		return s.state.Clone(), err
	}
	s.state = next
	s.logger.Debug("gene selected", zap.String("gene", name), zap.Uint64("key", next.RefreshToken))
	s.syncLocked(s.logger)
	return s.state.Clone(), nil
}

func (s *Session) syncLocked(logger *zap.Logger) {
	if _, err := s.adapter.Sync(s.state); err != nil {
		logger.Error("ideogram mount failed", zap.Uint64("key", s.state.RefreshToken), zap.Error(err))
	}
}

// Close tears down the mounted ideogram.
func (s *Session) Close() error {
	return s.adapter.Close()
}
