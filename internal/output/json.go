package output

import (
	"encoding/json"
	"io"

	"github.com/inodb/ideogram-genes/internal/view"
)

// Unresolved is a name that produced no annotation, with the reason.
type Unresolved struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report is the JSON document written for one batch.
type Report struct {
	Batch      string       `json:"batch"`
	Source     string       `json:"source,omitempty"`
	State      view.State   `json:"state"`
	Unresolved []Unresolved `json:"unresolved"`
}

// JSONWriter writes one indented JSON report per batch.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONWriter{enc: enc}
}

// Write writes r. Unresolved is always an array, never null.
func (jw *JSONWriter) Write(r Report) error {
	if r.Unresolved == nil {
		r.Unresolved = []Unresolved{}
	}
	return jw.enc.Encode(r)
}
