package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SizeFunc reports the current cache size for the cache_entries gauge.
type SizeFunc func() int

// Collector exposes Statistics as prometheus metrics. Values are read at
// scrape time, so nothing is duplicated between the two. Statistics.Reset
// drops the counters back to zero, which scrapers treat as a counter reset.
type Collector struct {
	stats *Statistics
	size  SizeFunc

	requests *prometheus.Desc
	tokens   *prometheus.Desc
	latency  *prometheus.Desc
	entries  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a Collector. size may be nil, in which case the cache
// gauge is not exported.
func NewCollector(s *Statistics, namespace string, size SizeFunc) *Collector {
	return &Collector{
		stats: s,
		size:  size,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "requests_total"),
			"Generations that reached the model since the last statistics reset.", nil, nil),
		tokens: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tokens_generated_total"),
			"Words generated across model calls since the last statistics reset.", nil, nil),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "average_latency_seconds"),
			"Running mean model latency.", nil, nil),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "cache_entries"),
			"Entries held by the response cache.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.tokens
	ch <- c.latency
	if c.size != nil {
		ch <- c.entries
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.tokens, prometheus.CounterValue, float64(snap.TotalTokensGenerated))
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, c.stats.AverageLatencySeconds())
	if c.size != nil {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(c.size()))
	}
}
