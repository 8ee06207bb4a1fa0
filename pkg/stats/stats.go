package stats

import (
	"sync"
	"time"

	"github.com/pario-ai/convo/pkg/models"
)

// Statistics aggregates counters for generations that reached the model.
// Cache hits are never recorded. It is safe for concurrent use.
type Statistics struct {
	mu            sync.Mutex
	requests      int64
	tokens        int64
	avgLatencySec float64
}

// New returns zeroed Statistics.
func New() *Statistics {
	return &Statistics{}
}

// Record adds one request with its latency and generated token count and
// folds the latency into the running mean.
func (s *Statistics) Record(latency time.Duration, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.tokens += int64(tokens)

	n := float64(s.requests)
	s.avgLatencySec = (s.avgLatencySec*(n-1) + latency.Seconds()) / n
}

// Snapshot returns the current counters.
func (s *Statistics) Snapshot() models.StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.StatsSnapshot{
		TotalRequests:        s.requests,
		TotalTokensGenerated: s.tokens,
		AverageLatency:       time.Duration(s.avgLatencySec * float64(time.Second)),
	}
	if s.requests > 0 {
		snap.TokensPerRequest = float64(s.tokens) / float64(s.requests)
	}
	return snap
}

// AverageLatencySeconds returns the running mean without rounding to a
// Duration.
func (s *Statistics) AverageLatencySeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgLatencySec
}

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = 0
	s.tokens = 0
	s.avgLatencySec = 0
}
