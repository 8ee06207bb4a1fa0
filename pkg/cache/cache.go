package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/pario-ai/convo/pkg/models"
)

// Key identifies a memoized generation. Two requests share an entry only when
// all three fields are exactly equal; temperature is compared with ==, so 0.7
// and 0.70000001 are different keys.
type Key struct {
	Prompt      string
	MaxLength   int
	Temperature float64
}

// Hash returns a SHA-256 digest of the key. The temperature is encoded with
// the shortest representation that round-trips, so distinct floats never
// share a digest and equal floats always do. Every NaN formats as "NaN" and
// so shares one digest.
func (k Key) Hash() string {
	temp := k.Temperature
	if temp == 0 {
		temp = 0 // fold -0 into +0
	}
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d|%s", len(k.Prompt), k.Prompt, k.MaxLength, strconv.FormatFloat(temp, 'g', -1, 64))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Cache memoizes generated text by Key. Entries never expire; they are
// removed only by Clear.
type Cache interface {
	// Get returns the cached text for k and counts a hit or a miss.
	Get(ctx context.Context, k Key) (string, bool, error)
	// Peek is Get without counting.
	Peek(ctx context.Context, k Key) (string, bool, error)
	// Put stores text under k, overwriting any previous value.
	Put(ctx context.Context, k Key, text string) error
	// Clear removes every entry and reports how many were dropped.
	Clear(ctx context.Context) (int, error)
	// Size returns the number of entries.
	Size(ctx context.Context) (int, error)
	// Stats returns entry count and hit/miss counters.
	Stats(ctx context.Context) (models.CacheStats, error)
}
