package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/lookup"
)

var _ lookup.HitCache = (*Store)(nil)

// GetHits returns the cached hits for name on asm. The bool is false when
// nothing is cached.
func (s *Store) GetHits(ctx context.Context, asm assembly.Assembly, name string) ([]lookup.Hit, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, chrom, start_pos, stop_pos
		FROM gene_hits
		WHERE assembly=? AND query_name=?
		ORDER BY seq`, string(asm), name)
	if err != nil {
		return nil, false, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	var hits []lookup.Hit
	for rows.Next() {
		var h lookup.Hit
		if err := rows.Scan(&h.Name, &h.Chrom, &h.Start, &h.Stop); err != nil {
			return nil, false, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, len(hits) > 0, nil
}

// PutHits replaces the cached hits for name on asm.
func (s *Store) PutHits(ctx context.Context, asm assembly.Assembly, name string, hits []lookup.Hit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gene_hits WHERE assembly=? AND query_name=?`,
		string(asm), name); err != nil {
		return fmt.Errorf("delete hits: %w", err)
	}

	now := time.Now().UTC()
	for i, h := range hits {
		if _, err := tx.ExecContext(ctx, `INSERT INTO gene_hits
			(assembly, query_name, seq, name, chrom, start_pos, stop_pos, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(asm), name, i, h.Name, h.Chrom, h.Start, h.Stop, now); err != nil {
			return fmt.Errorf("insert hit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hits: %w", err)
	}
	return nil
}

// PurgeOlderThan removes entries cached more than age ago and returns how many
// rows were removed.
func (s *Store) PurgeOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := s.db.Exec(`DELETE FROM gene_hits WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge hits: %w", err)
	}
	return res.RowsAffected()
}

// HitCount returns the number of cached hit rows.
func (s *Store) HitCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM gene_hits").Scan(&n); err != nil {
		return 0, fmt.Errorf("count hits: %w", err)
	}
	return n, nil
}
