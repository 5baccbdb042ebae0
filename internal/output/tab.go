// Package output provides resolved-gene output formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/ideogram-genes/internal/gene"
)

// TabWriter writes resolved genes in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Gene",
			"Chromosome",
			"Start",
			"Stop",
			"Length",
			"Selected",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single gene annotation.
func (tw *TabWriter) Write(ann gene.Annotation, selected bool) error {
	sel := "-"
	if selected {
		sel = "YES"
	}

	chrom := ann.Chr
	if chrom == "" {
		chrom = "-"
	}

	values := []string{
		ann.Name,
		chrom,
		strconv.FormatInt(ann.Start, 10),
		strconv.FormatInt(ann.Stop, 10),
		strconv.FormatInt(ann.Length(), 10),
		sel,
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteUnresolved writes a comment line for a name that did not resolve.
func (tw *TabWriter) WriteUnresolved(name, reason string) error {
	_, err := tw.w.WriteString("## unresolved\t" + name + "\t" + reason + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
