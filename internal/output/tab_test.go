package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/ideogram-genes/internal/gene"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	assert.Equal(t, "#Gene\tChromosome\tStart\tStop\tLength\tSelected\n", buf.String())
}

func TestTabWriter_Write_BRCA1(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	ann := gene.New("BRCA1", "chr17", 43044295, 43125483)
	require.NoError(t, w.Write(ann, true))
	require.NoError(t, w.Write(gene.New("KRAS", "chr12", 25205246, 25250929), false))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 6)
	assert.Equal(t, "BRCA1", fields[0])
	assert.Equal(t, "17", fields[1])
	assert.Equal(t, "43044295", fields[2])
	assert.Equal(t, "43125483", fields[3])
	assert.Equal(t, "81189", fields[4])
	assert.Equal(t, "YES", fields[5])

	assert.True(t, strings.HasSuffix(lines[1], "\t-"))
}

func TestTabWriter_WriteUnresolved(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteUnresolved("TP53", "no exact-name match"))
	require.NoError(t, w.Flush())
	assert.Equal(t, "## unresolved\tTP53\tno exact-name match\n", buf.String())
}
