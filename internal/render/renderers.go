package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// noopHandle is returned by renderers whose instances hold no resources.
type noopHandle struct{}

func (noopHandle) Teardown() error { return nil }

// Recorder keeps the parameters of the most recent mount. It backs the HTTP
// endpoint that the browser page polls to build its ideogram.
type Recorder struct {
	mu     sync.RWMutex
	params Params
	mounts int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Mount implements Renderer.
func (r *Recorder) Mount(p Params) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = p
	r.mounts++
	return noopHandle{}, nil
}

// Latest returns the last mounted parameters and the number of mounts so far.
// The bool is false before the first mount.
func (r *Recorder) Latest() (Params, int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params, r.mounts, r.mounts > 0
}

// JSONRenderer writes each mount's parameters to w as one JSON line.
type JSONRenderer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONRenderer creates a renderer writing to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

// Mount implements Renderer.
func (j *JSONRenderer) Mount(p Params) (Handle, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(p); err != nil {
		return nil, fmt.Errorf("write ideogram params: %w", err)
	}
	return noopHandle{}, nil
}
