package models

import "time"

// StatsSnapshot is a point-in-time view of inference statistics.
type StatsSnapshot struct {
	TotalRequests        int64         `json:"total_requests"`
	TotalTokensGenerated int64         `json:"total_tokens_generated"`
	AverageLatency       time.Duration `json:"average_latency_ns"`
	TokensPerRequest     float64       `json:"tokens_per_request"`
}

// EngineStats adds cache occupancy to the statistics snapshot.
type EngineStats struct {
	StatsSnapshot
	CacheSize int `json:"cache_size"`
}

// InteractiveTurn is one step of a self-extending generation loop.
type InteractiveTurn struct {
	Turn      int       `json:"turn"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
