// Package metrics defines the Sink the results pipeline reports to, with an
// in-memory implementation for the CLI and tests and a Prometheus
// implementation for the HTTP server.
package metrics

import (
	"sync"
	"time"
)

// Sink receives operational metrics. Implementations must be safe for
// concurrent use.
type Sink interface {
	IncrCounter(name string)
	SetGauge(name string, value float64)
	RecordTiming(name string, duration time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncrCounter(string)                 {}
func (Nop) SetGauge(string, float64)           {}
func (Nop) RecordTiming(string, time.Duration) {}

// Memory tracks counters, gauges and timings in process.
//
// Counters track incrementing values (e.g., number of reports fetched).
// Gauges track point-in-time values (e.g., rows in the last leaderboard).
// Timings track durations and compute min/max/average statistics.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// NewMemory creates a new metrics tracker with empty counters, gauges, and timings.
func NewMemory() *Memory {
	return &Memory{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrCounter increments a counter by 1.
func (m *Memory) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// SetGauge sets a gauge to the specified value, overwriting any previous value.
func (m *Memory) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// RecordTiming records a duration measurement.
func (m *Memory) RecordTiming(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], duration)
}

// Counter returns the current value of a counter.
func (m *Memory) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot returns a deep copy of all metrics as a map containing:
//   - "counters": map of counter names to values
//   - "gauges": map of gauge names to values
//   - "timings": map of timing names to statistics (count, total, average, min, max)
func (m *Memory) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	gauges := make(map[string]float64, len(m.gauges))
	for k, v := range m.gauges {
		gauges[k] = v
	}

	timings := make(map[string]map[string]interface{})
	for name, durations := range m.timings {
		if len(durations) == 0 {
			continue
		}

		var total time.Duration
		min := durations[0]
		max := durations[0]
		for _, d := range durations {
			total += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}

		timings[name] = map[string]interface{}{
			"count":   len(durations),
			"total":   total.String(),
			"average": (total / time.Duration(len(durations))).String(),
			"min":     min.String(),
			"max":     max.String(),
		}
	}

	return map[string]interface{}{
		"counters": counters,
		"gauges":   gauges,
		"timings":  timings,
	}
}
