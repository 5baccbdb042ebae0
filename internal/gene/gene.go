// Package gene holds the resolved gene annotation record shared by the
// resolution pipeline, the view state and the ideogram renderer.
package gene

import "strings"

// Annotation locates a resolved gene on a chromosome.
// Field names and JSON keys follow the ideogram annotation format.
type Annotation struct {
	Name  string `json:"name"`  // Gene symbol as queried (e.g., BRCA1)
	Chr   string `json:"chr"`   // Chromosome without "chr" prefix (e.g., 17)
	Start int64  `json:"start"` // Start position
	Stop  int64  `json:"stop"`  // Stop position
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}

// New builds an Annotation from raw lookup coordinates.
func New(name, chrom string, start, stop int64) Annotation {
	return Annotation{
		Name:  name,
		Chr:   NormalizeChrom(chrom),
		Start: start,
		Stop:  stop,
	}
}

// Length returns the number of bases spanned by the annotation.
func (a Annotation) Length() int64 {
	if a.Stop < a.Start {
		return 0
	}
	return a.Stop - a.Start + 1
}

// Find returns the annotation named name, if present.
func Find(anns []Annotation, name string) (Annotation, bool) {
	for _, a := range anns {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// Names returns the annotation names in order.
func Names(anns []Annotation) []string {
	names := make([]string, len(anns))
	for i, a := range anns {
		names[i] = a.Name
	}
	return names
}
