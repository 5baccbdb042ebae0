// Package view holds the viewer's state: the resolved gene list, the selected
// gene and the annotations handed to the ideogram.
//
// State is a value. Every transition takes a State and returns a new one; no
// function here mutates its input.
package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/gene"
)

// Orientation is the ideogram layout direction.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// ParseOrientation converts text to an Orientation.
func ParseOrientation(text string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "vertical", "":
		return Vertical, nil
	case "horizontal":
		return Horizontal, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (supported: vertical, horizontal)", text)
	}
}

// ErrUnknownGene is returned when selecting a gene that is not in the
// resolved list.
var ErrUnknownGene = errors.New("gene is not in the resolved list")

// State is the single source of truth for what the viewer shows.
type State struct {
	Genes           []string          `json:"genes"`
	SelectedGene    string            `json:"selectedGene"`
	GeneAnnotations []gene.Annotation `json:"geneAnnotations"`
	IdeoAnnotations []gene.Annotation `json:"ideoAnnotations"`
	RefreshToken    uint64            `json:"refreshToken"`
	Assembly        assembly.Assembly `json:"assembly"`
	Orientation     Orientation       `json:"orientation"`
}

// New returns the initial state for an assembly and orientation.
func New(asm assembly.Assembly, o Orientation) State {
	return State{
		Genes:           []string{},
		GeneAnnotations: []gene.Annotation{},
		IdeoAnnotations: []gene.Annotation{},
		Assembly:        asm,
		Orientation:     o,
	}
}

// Selected returns the selected gene, if any.
func (s State) Selected() (string, bool) {
	return s.SelectedGene, s.SelectedGene != ""
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Genes = append([]string{}, s.Genes...)
	c.GeneAnnotations = append([]gene.Annotation{}, s.GeneAnnotations...)
	c.IdeoAnnotations = append([]gene.Annotation{}, s.IdeoAnnotations...)
	return c
}

// Resolved applies a finished resolution batch. The first annotation becomes
// the selection; with no annotations the state returns to its defaults.
// Annotations repeating an earlier name are dropped. The refresh token is
// bumped either way.
func Resolved(s State, anns []gene.Annotation) State {
	next := New(s.Assembly, s.Orientation)
	next.RefreshToken = s.RefreshToken + 1

	seen := make(map[string]bool, len(anns))
	for _, a := range anns {
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		next.Genes = append(next.Genes, a.Name)
		next.GeneAnnotations = append(next.GeneAnnotations, a)
	}

	if len(next.GeneAnnotations) > 0 {
		first := next.GeneAnnotations[0]
		next.SelectedGene = first.Name
		next.IdeoAnnotations = []gene.Annotation{first}
	}
	return next
}

// Reset returns the default state after a failed batch, with the refresh
// token bumped so the ideogram is redrawn empty.
func Reset(s State) State {
	next := New(s.Assembly, s.Orientation)
	next.RefreshToken = s.RefreshToken + 1
	return next
}

// Select makes name the selected gene and narrows the ideogram annotations to
// its record. Selecting the current gene again is allowed and still bumps the
// refresh token. A name outside the resolved list returns ErrUnknownGene and
// leaves the state unchanged.
func Select(s State, name string) (State, error) {
	ann, ok := gene.Find(s.GeneAnnotations, name)
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownGene, name)
	}

	next := s.Clone()
	next.SelectedGene = name
	next.IdeoAnnotations = []gene.Annotation{ann}
	next.RefreshToken = s.RefreshToken + 1
	return next, nil
}
