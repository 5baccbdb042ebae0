// Package ingest turns uploaded gene-list files into gene-name tokens.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const bom = "\ufeff"

// maxLineSize bounds a single line; gene lists are short, this only guards
// against binary uploads.
const maxLineSize = 1024 * 1024

// Split splits text into gene names, one per line. Lines are trimmed and empty
// lines dropped; the remaining order is preserved. Names are not validated.
func Split(text string) []string {
	names, _ := Read(strings.NewReader(text))
	return names
}

// Read reads gene names from r, one per line.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	names := []string{}
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gene list: %w", err)
	}
	return names, nil
}

// ReadFile reads gene names from the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene list: %w", err)
	}
	defer f.Close()

	return Read(f)
}
