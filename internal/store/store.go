// Package store provides the key-addressable cache the population
// pipeline writes and the read API serves. Three backends implement the
// same contract: Redis (primary in production), Postgres (backup mirror)
// and an in-process memory store (dev and tests).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("store: key not found")

// Store is the cache contract. Ranking indices are ordered sets keyed by
// rank (1-based insertion order); ReplaceRanking always fully replaces
// the prior set, never merges.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns one entry per requested key; missing keys yield a nil
	// entry at their position.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	ReplaceRanking(ctx context.Context, key string, ids []string) error
	// RankingRange returns ids for the 0-based inclusive rank range
	// [start, stop]; stop == -1 means "to the end". A range past the end
	// of the set returns an empty slice, not an error.
	RankingRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Close() error
}

// Open connects to a store by URL. The scheme selects the backend.
func Open(rawURL string) (Store, error) {
	switch {
	case strings.HasPrefix(rawURL, "redis://"), strings.HasPrefix(rawURL, "rediss://"):
		return openRedis(rawURL)
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return openPostgres(rawURL)
	case strings.HasPrefix(rawURL, "memory://"):
		return openMemory(strings.TrimPrefix(rawURL, "memory://")), nil
	default:
		return nil, fmt.Errorf("store: unsupported store URL %q", rawURL)
	}
}
