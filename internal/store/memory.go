package store

import (
	"context"
	"sync"
)

// Memory stores are shared per URL name for the process lifetime, so a
// pipeline invocation that opens memory://default and a read handler
// holding the same URL see the same data. Close is a no-op.
var (
	memMu       sync.Mutex
	memRegistry = make(map[string]*memStore)
)

func openMemory(name string) *memStore {
	memMu.Lock()
	defer memMu.Unlock()
	if s, ok := memRegistry[name]; ok {
		return s
	}
	s := &memStore{
		entries:  make(map[string][]byte),
		rankings: make(map[string][]string),
	}
	memRegistry[name] = s
	return s
}

type memStore struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	rankings map[string][]string
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)
	s.mu.Lock()
	s.entries[key] = copied
	s.mu.Unlock()
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *memStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if data, ok := s.entries[key]; ok {
			copied := make([]byte, len(data))
			copy(copied, data)
			out[i] = copied
		}
	}
	return out, nil
}

func (s *memStore) ReplaceRanking(ctx context.Context, key string, ids []string) error {
	copied := make([]string, len(ids))
	copy(copied, ids)
	s.mu.Lock()
	s.rankings[key] = copied
	s.mu.Unlock()
	return nil
}

func (s *memStore) RankingRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.rankings[key]
	n := int64(len(ids))
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, ids[start:stop+1])
	return out, nil
}

func (s *memStore) Close() error {
	return nil
}
