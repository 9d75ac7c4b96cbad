package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/harfire/internal/har"
)

// Stats aggregates the entries of a trace archive.
type Stats struct {
	Total       int           `json:"total"`
	Successes   int           `json:"successes"`
	Failures    int           `json:"failures"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	StatusBuckets map[string]int `json:"status_buckets,omitempty"`
}

// Summarize computes latency percentiles and status distribution for a set of
// recorded entries. A status below 400 counts as a success; 4xx and 5xx count
// as failures.
func Summarize(entries []*har.Entry) Stats {
	stats := Stats{StatusBuckets: make(map[string]int)}

	// Track latencies from 1µs up to 60s with 3 significant figures.
	hist := hdrhistogram.New(1, 60_000_000, 3)

	var sum time.Duration
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		stats.Total++

		if entry.Response != nil {
			stats.StatusBuckets[statusClass(entry.Response.Status)]++
			if entry.Response.Status >= 400 {
				stats.Failures++
			} else {
				stats.Successes++
			}
		}

		latency := time.Duration(entry.Time * float64(time.Millisecond))
		sum += latency
		if latency > 0 {
			us := latency.Microseconds()
			if us < hist.LowestTrackableValue() {
				us = hist.LowestTrackableValue()
			}
			if us > hist.HighestTrackableValue() {
				us = hist.HighestTrackableValue()
			}
			_ = hist.RecordValue(us)
		}
		if stats.MinLatency == 0 || latency < stats.MinLatency {
			stats.MinLatency = latency
		}
		if latency > stats.MaxLatency {
			stats.MaxLatency = latency
		}
	}

	if stats.Total > 0 {
		stats.MeanLatency = sum / time.Duration(stats.Total)
	}
	if hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if len(stats.StatusBuckets) == 0 {
		stats.StatusBuckets = nil
	}

	stats.MinLatencyMs = durationMs(stats.MinLatency)
	stats.MaxLatencyMs = durationMs(stats.MaxLatency)
	stats.MeanLatencyMs = durationMs(stats.MeanLatency)
	stats.P50LatencyMs = durationMs(stats.P50Latency)
	stats.P90LatencyMs = durationMs(stats.P90Latency)
	stats.P99LatencyMs = durationMs(stats.P99Latency)

	return stats
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
