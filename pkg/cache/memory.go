package cache

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pario-ai/convo/pkg/models"
)

// Memory is an in-process Cache. With maxEntries <= 0 it grows without bound;
// otherwise the least recently used entry is evicted once the bound is hit.
// Entries are stored under Key.Hash, so keys match exactly as in the SQL
// backend, NaN temperatures included.
type Memory struct {
	mu      sync.Mutex
	entries map[string]string

	bounded *lru.Cache[string, string]

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a Memory cache.
func NewMemory(maxEntries int) *Memory {
	m := &Memory{}
	if maxEntries > 0 {
		l, err := lru.New[string, string](maxEntries)
		if err != nil {
			// only possible for a non-positive size
			panic(err)
		}
		m.bounded = l
		return m
	}
	m.entries = make(map[string]string)
	return m
}

// Get returns the cached text for k.
func (m *Memory) Get(ctx context.Context, k Key) (string, bool, error) {
	var (
		text string
		ok   bool
	)
	if m.bounded != nil {
		text, ok = m.bounded.Get(k.Hash())
	} else {
		text, ok, _ = m.Peek(ctx, k)
	}

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return text, ok, nil
}

// Peek is Get without touching hit/miss counters or LRU recency.
func (m *Memory) Peek(_ context.Context, k Key) (string, bool, error) {
	h := k.Hash()
	if m.bounded != nil {
		text, ok := m.bounded.Peek(h)
		return text, ok, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.entries[h]
	return text, ok, nil
}

// Put stores text under k.
func (m *Memory) Put(_ context.Context, k Key, text string) error {
	h := k.Hash()
	if m.bounded != nil {
		m.bounded.Add(h, text)
		return nil
	}
	m.mu.Lock()
	m.entries[h] = text
	m.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear(_ context.Context) (int, error) {
	if m.bounded != nil {
		n := m.bounded.Len()
		m.bounded.Purge()
		return n, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	clear(m.entries)
	return n, nil
}

// Size returns the number of entries.
func (m *Memory) Size(_ context.Context) (int, error) {
	if m.bounded != nil {
		return m.bounded.Len(), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Stats returns cache performance metrics.
func (m *Memory) Stats(ctx context.Context) (models.CacheStats, error) {
	n, _ := m.Size(ctx)
	return models.CacheStats{
		Entries: int64(n),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}, nil
}
