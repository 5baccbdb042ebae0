package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Assembly
	}{
		{"GRCh38", GRCh38},
		{"grch38", GRCh38},
		{" GRCh37 ", GRCh37},
		{"hg19", GRCh37},
		{"HG38", GRCh38},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("NCBI36")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRCh37, GRCh38")
}

func TestLegacyName(t *testing.T) {
	name, ok := GRCh38.LegacyName()
	require.True(t, ok)
	assert.Equal(t, "hg38", name)

	name, ok = GRCh37.LegacyName()
	require.True(t, ok)
	assert.Equal(t, "hg19", name)

	_, ok = Assembly("mm10").LegacyName()
	assert.False(t, ok)
}

func TestMapping_IsCopy(t *testing.T) {
	m := Mapping()
	m["GRCh38"] = "changed"

	name, _ := GRCh38.LegacyName()
	assert.Equal(t, "hg38", name)
	assert.Equal(t, []string{"GRCh37", "GRCh38"}, Names())
}
