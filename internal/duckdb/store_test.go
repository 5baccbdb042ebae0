package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/lookup"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	n, err := s.HitCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hits.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestPutAndGetHits(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	hits := []lookup.Hit{
		{Name: "BRCA1", Chrom: "chr17", Start: 43044295, Stop: 43125483},
		{Name: "BRCA1", Chrom: "chr17_KI270909v1_alt", Start: 1, Stop: 2},
	}
	require.NoError(t, s.PutHits(ctx, assembly.GRCh38, "BRCA1", hits))

	got, ok, err := s.GetHits(ctx, assembly.GRCh38, "BRCA1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hits, got)

	_, ok, err = s.GetHits(ctx, assembly.GRCh37, "BRCA1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutHits_Replaces(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.PutHits(ctx, assembly.GRCh38, "KRAS", []lookup.Hit{
		{Name: "KRAS", Chrom: "chr12", Start: 1, Stop: 2},
		{Name: "KRAS", Chrom: "chr12", Start: 3, Stop: 4},
	}))
	require.NoError(t, s.PutHits(ctx, assembly.GRCh38, "KRAS", []lookup.Hit{
		{Name: "KRAS", Chrom: "chr12", Start: 25205246, Stop: 25250929},
	}))

	got, ok, err := s.GetHits(ctx, assembly.GRCh38, "KRAS")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, int64(25205246), got[0].Start)

	n, err := s.HitCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPurgeOlderThan(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.PutHits(ctx, assembly.GRCh38, "TP53", []lookup.Hit{{Name: "TP53", Chrom: "chr17"}}))
	require.NoError(t, s.PutHits(ctx, assembly.GRCh38, "EGFR", []lookup.Hit{{Name: "EGFR", Chrom: "chr7"}}))

	removed, err := s.PurgeOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = s.PurgeOlderThan(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	n, err := s.HitCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_AsHitCache(t *testing.T) {
	s := openInMemory(t)
	next := lookupFunc(func(name string) ([]lookup.Hit, error) {
		return []lookup.Hit{{Name: name, Chrom: "chr1", Start: 10, Stop: 20}}, nil
	})

	cl := lookup.NewCachedLookuper(next, s)
	_, err := cl.Lookup(context.Background(), "NRAS", assembly.GRCh38)
	require.NoError(t, err)

	got, ok, err := s.GetHits(context.Background(), assembly.GRCh38, "NRAS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "chr1", got[0].Chrom)
}

type lookupFunc func(name string) ([]lookup.Hit, error)

func (f lookupFunc) Lookup(_ context.Context, name string, _ assembly.Assembly) ([]lookup.Hit, error) {
	return f(name)
}
