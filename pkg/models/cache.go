package models

import "time"

// CacheEntry stores a cached generation.
type CacheEntry struct {
	Prompt      string    `json:"prompt"`
	MaxLength   int       `json:"max_length"`
	Temperature float64   `json:"temperature"`
	Response    string    `json:"response"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
