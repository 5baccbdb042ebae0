// Package assembly defines the genome assemblies understood by the viewer and
// their names in the annotation service's older UCSC convention.
package assembly

import (
	"fmt"
	"sort"
	"strings"
)

// Assembly is a reference genome build identifier (e.g. "GRCh38").
type Assembly string

// Supported assemblies.
const (
	GRCh38 Assembly = "GRCh38"
	GRCh37 Assembly = "GRCh37"
)

// Default is the assembly used when none is configured.
const Default = GRCh38

var legacyNames = map[Assembly]string{
	GRCh38: "hg38",
	GRCh37: "hg19",
}

// Parse converts text to a known Assembly. Matching is case-insensitive and
// also accepts the legacy name ("hg19" parses as GRCh37).
func Parse(text string) (Assembly, error) {
	t := strings.TrimSpace(text)
	for a, legacy := range legacyNames {
		if strings.EqualFold(t, string(a)) || strings.EqualFold(t, legacy) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown assembly %q (supported: %s)", text, strings.Join(Names(), ", "))
}

// LegacyName returns the annotation service's name for the assembly.
func (a Assembly) LegacyName() (string, bool) {
	name, ok := legacyNames[a]
	return name, ok
}

// Valid reports whether a is a supported assembly.
func (a Assembly) Valid() bool {
	_, ok := legacyNames[a]
	return ok
}

func (a Assembly) String() string { return string(a) }

// Names returns the supported assembly identifiers, sorted.
func Names() []string {
	names := make([]string, 0, len(legacyNames))
	for a := range legacyNames {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// Mapping returns a copy of the assembly to legacy-name table.
func Mapping() map[string]string {
	m := make(map[string]string, len(legacyNames))
	for a, legacy := range legacyNames {
		m[string(a)] = legacy
	}
	return m
}
