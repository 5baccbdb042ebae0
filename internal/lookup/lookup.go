// Package lookup queries the remote gene annotation service.
//
// The service answers GET /sets?q={name}&assembly={legacy} with a JSON object
// that may hold a "hits" map from the queried name to candidate records.
package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/inodb/ideogram-genes/internal/assembly"
)

// Hit is a single candidate record returned by the annotation service.
type Hit struct {
	Name  string `mapstructure:"name" json:"name"`
	Chrom string `mapstructure:"chrom" json:"chrom"`
	Start int64  `mapstructure:"start" json:"start"`
	Stop  int64  `mapstructure:"stop" json:"stop"`
}

// Lookuper resolves one gene name to its exact-name hits.
// A nil error always comes with at least one hit.
type Lookuper interface {
	Lookup(ctx context.Context, name string, asm assembly.Assembly) ([]Hit, error)
}

var (
	// ErrNoHits means the response carried no "hits" field.
	ErrNoHits = errors.New("response has no hits")
	// ErrNoMatch means no hit's name equals the queried name.
	ErrNoMatch = errors.New("no hit matches gene name")
	// ErrUnknownAssembly means the assembly has no legacy name.
	ErrUnknownAssembly = errors.New("unknown assembly")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("annotation service error %d", e.StatusCode)
	}
	return fmt.Sprintf("annotation service error %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsUnresolved reports whether err means the service answered but had no
// matching record, as opposed to the request failing.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrNoHits) || errors.Is(err, ErrNoMatch)
}

// Reason gives a short, stable description of a lookup failure for reports.
func Reason(err error) string {
	var se *StatusError
	switch {
	case IsUnresolved(err):
		return "no match"
	case errors.As(err, &se):
		return fmt.Sprintf("service returned %d", se.StatusCode)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return "lookup failed"
	}
}
