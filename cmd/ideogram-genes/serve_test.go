package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/config"
	"github.com/inodb/ideogram-genes/internal/duckdb"
	"github.com/inodb/ideogram-genes/internal/lookup"
)

func TestSchedulePurge_RemovesExpiredHits(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.PutHits(ctx, assembly.GRCh38, "BRCA1",
		[]lookup.Hit{{Name: "BRCA1", Chrom: "chr17", Start: 43044295, Stop: 43125483}}))

	sched, err := schedulePurge(store, config.Cache{
		Enabled:       true,
		TTL:           time.Nanosecond,
		PurgeInterval: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		n, err := store.HitCount()
		return err == nil && n == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSchedulePurge_KeepsFreshHits(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutHits(context.Background(), assembly.GRCh38, "KRAS",
		[]lookup.Hit{{Name: "KRAS", Chrom: "chr12", Start: 25205246, Stop: 25250929}}))

	sched, err := schedulePurge(store, config.Cache{
		Enabled:       true,
		TTL:           time.Hour,
		PurgeInterval: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	defer sched.Stop()

	time.Sleep(200 * time.Millisecond)
	n, err := store.HitCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
