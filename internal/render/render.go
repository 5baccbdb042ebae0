// Package render adapts view state to the ideogram renderer. The renderer is
// a black box built from a full parameter set; it has no incremental update,
// so the adapter tears it down and builds a new one whenever the state's
// refresh token changes.
package render

import (
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/gene"
	"github.com/inodb/ideogram-genes/internal/metrics"
	"github.com/inodb/ideogram-genes/internal/view"
)

// Organism is fixed; only human assemblies are mapped.
const Organism = "human"

// Params are the renderer's construction parameters.
type Params struct {
	Organism    string            `json:"organism"`
	Assembly    string            `json:"assembly"`
	Orientation string            `json:"orientation"`
	Annotations []gene.Annotation `json:"annotations"`
}

// ParamsFor returns the construction parameters for s.
func ParamsFor(s view.State) Params {
	return Params{
		Organism:    Organism,
		Assembly:    s.Assembly.String(),
		Orientation: string(s.Orientation),
		Annotations: append([]gene.Annotation{}, s.IdeoAnnotations...),
	}
}

// Renderer constructs a renderer instance from full parameters.
type Renderer interface {
	Mount(p Params) (Handle, error)
}

// Handle is a mounted renderer instance.
type Handle interface {
	Teardown() error
}

// Adapter remounts a Renderer whenever the refresh token changes.
type Adapter struct {
	mu       sync.Mutex
	renderer Renderer
	handle   Handle
	key      uint64
	params   Params
	mounted  bool
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewAdapter creates an adapter for r. Nothing is mounted until the first Sync.
func NewAdapter(r Renderer) *Adapter {
	return &Adapter{
		renderer: r,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for teardown failures.
func (a *Adapter) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetMetrics sets the collector that counts mounts.
func (a *Adapter) SetMetrics(m *metrics.Collector) {
	a.metrics = m
}

// Sync mounts a fresh renderer for s if its refresh token differs from the
// mounted one. It reports whether a mount happened.
func (a *Adapter) Sync(s view.State) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mounted && a.key == s.RefreshToken {
		return false, nil
	}

	if a.handle != nil {
		if err := a.handle.Teardown(); err != nil {
			a.logger.Warn("renderer teardown failed", zap.Uint64("key", a.key), zap.Error(err))
		}
		a.handle = nil
		a.mounted = false
	}

	p := ParamsFor(s)
	h, err := a.renderer.Mount(p)
	if err != nil {
		return false, err
	}
	a.handle = h
	a.key = s.RefreshToken
	a.params = p
	a.mounted = true
	a.metrics.ObserveMount()
	return true, nil
}

// Mounted returns the refresh token and parameters of the mounted renderer
// as one consistent pair. The bool is false when nothing is mounted.
func (a *Adapter) Mounted() (uint64, Params, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.mounted {
		return 0, Params{}, false
	}
	return a.key, a.params, true
}

// Close tears down the mounted renderer, if any.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.handle == nil {
		return nil
	}
	err := a.handle.Teardown()
	a.handle = nil
	a.mounted = false
	return err
}
