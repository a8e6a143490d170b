package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// pgStore backs the cache contract with two tables: a key/value table
// for records and a ranking table for the ordered indices. Used as the
// backup mirror in the reference deployment.
type pgStore struct {
	db *sql.DB
}

func openPostgres(dsn string) (*pgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &pgStore{db: db}
	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *pgStore) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS cache_rankings (
			ranking_key TEXT NOT NULL,
			rank INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			PRIMARY KEY (ranking_key, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_rankings_key ON cache_rankings(ranking_key)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create cache table: %w", err)
		}
	}
	return nil
}

func (s *pgStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key)
		 DO UPDATE SET data = $2, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM cache_entries WHERE key = $1", key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (s *pgStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, data FROM cache_entries WHERE key = ANY($1)", pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mget: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			continue
		}
		found[key] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to mget: %w", err)
	}

	out := make([][]byte, len(keys))
	for i, key := range keys {
		out[i] = found[key]
	}
	return out, nil
}

func (s *pgStore) ReplaceRanking(ctx context.Context, key string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ranking replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_rankings WHERE ranking_key = $1", key); err != nil {
		return fmt.Errorf("failed to clear ranking %s: %w", key, err)
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO cache_rankings (ranking_key, rank, item_id) VALUES ($1, $2, $3)",
			key, i+1, id,
		); err != nil {
			return fmt.Errorf("failed to insert rank %d for %s: %w", i+1, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ranking %s: %w", key, err)
	}
	return nil
}

func (s *pgStore) RankingRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	// Ranks are 1-based in the table; the range arguments are 0-based.
	query := "SELECT item_id FROM cache_rankings WHERE ranking_key = $1 AND rank >= $2 ORDER BY rank"
	args := []interface{}{key, start + 1}
	if stop >= 0 {
		query = "SELECT item_id FROM cache_rankings WHERE ranking_key = $1 AND rank >= $2 AND rank <= $3 ORDER BY rank"
		args = append(args, stop+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to range ranking %s: %w", key, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to range ranking %s: %w", key, err)
	}
	return ids, nil
}

func (s *pgStore) Close() error {
	return s.db.Close()
}
