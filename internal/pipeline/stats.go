package pipeline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of conversion activity.
type StatsSnapshot struct {
	Conversions map[string]int64 `json:"conversions_by_format"`
	Failures    map[string]int64 `json:"failures_by_class"`
	Nodes       int64            `json:"nodes_produced"`
	Latency     LatencySnapshot  `json:"latency"`
}

// LatencySnapshot aggregates recent conversion latency samples.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Stats tracks conversion counters plus latencies within a rolling window.
type Stats struct {
	mu          sync.Mutex
	conversions map[string]int64
	failures    map[string]int64
	nodes       int64
	samples     []sample
	maxAge      time.Duration
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		conversions: make(map[string]int64),
		failures:    make(map[string]int64),
		samples:     make([]sample, 0, 256),
		maxAge:      maxAge,
	}
}

// RecordConversion counts a successful conversion and its latency.
func (s *Stats) RecordConversion(format string, nodes int, durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversions[format]++
	s.nodes += int64(nodes)
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
	})
}

// RecordFailure counts a failed conversion by error class.
func (s *Stats) RecordFailure(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[class]++
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Conversions: make(map[string]int64, len(s.conversions)),
		Failures:    make(map[string]int64, len(s.failures)),
		Nodes:       s.nodes,
	}
	for k, v := range s.conversions {
		snap.Conversions[k] = v
	}
	for k, v := range s.failures {
		snap.Failures[k] = v
	}

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Latency = LatencySnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
