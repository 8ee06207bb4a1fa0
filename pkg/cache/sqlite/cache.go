package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/convo/pkg/cache"
	"github.com/pario-ai/convo/pkg/models"
)

// MemoryDSN keeps the database inside the process.
const MemoryDSN = ":memory:"

// Cache is an exact-match response cache backed by SQLite.
type Cache struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

var _ cache.Cache = (*Cache)(nil)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS response_cache (
	key_hash TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	max_length INTEGER NOT NULL,
	temperature REAL NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens the cache database at dsn. An empty dsn means MemoryDSN.
func New(dsn string) (*Cache, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if dsn == MemoryDSN {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get retrieves a cached response.
func (c *Cache) Get(ctx context.Context, k cache.Key) (string, bool, error) {
	response, ok, err := c.Peek(ctx, k)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return response, ok, err
}

// Peek retrieves a cached response without counting a hit or miss.
func (c *Cache) Peek(ctx context.Context, k cache.Key) (string, bool, error) {
	var response string
	err := c.db.QueryRowContext(ctx,
		`SELECT response FROM response_cache WHERE key_hash = ?`,
		k.Hash(),
	).Scan(&response)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return response, true, nil
}

// Put stores a response in the cache.
func (c *Cache) Put(ctx context.Context, k cache.Key, text string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO response_cache (key_hash, prompt, max_length, temperature, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		k.Hash(), k.Prompt, k.MaxLength, k.Temperature, text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM response_cache`)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return int(n), nil
}

// Size returns the number of entries.
func (c *Cache) Size(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM response_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache size: %w", err)
	}
	return count, nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	n, err := c.Size(ctx)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: int64(n),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Entries lists cached generations, newest first. limit <= 0 lists all.
func (c *Cache) Entries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	query := `SELECT prompt, max_length, temperature, response, created_at
		 FROM response_cache ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.Prompt, &e.MaxLength, &e.Temperature, &e.Response, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
