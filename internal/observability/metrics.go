package observability

import (
	"sync"
	"time"
)

type routeKey struct {
	path   string
	method string
}

type routeStats struct {
	count         int64
	totalDuration time.Duration
	statusCounts  map[int]int64
}

// Metrics keeps in-memory per-route request and error counters. It is a
// process-local stand-in for a metrics backend; the request logger feeds it
// on every request.
type Metrics struct {
	mu       sync.Mutex
	requests map[routeKey]*routeStats
	errors   map[routeKey]map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[routeKey]*routeStats),
		errors:   make(map[routeKey]map[string]int64),
	}
}

// RecordRequest counts a completed request and its latency per route.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := routeKey{path: path, method: method}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.requests[key]
	if stats == nil {
		stats = &routeStats{statusCounts: make(map[int]int64)}
		m.requests[key] = stats
	}
	stats.count++
	stats.totalDuration += duration
	stats.statusCounts[status]++
}

// RecordError counts a request that resolved to an error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := routeKey{path: path, method: method}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors[key] == nil {
		m.errors[key] = make(map[string]int64)
	}
	m.errors[key][code]++
}

// RequestCount returns the number of requests recorded for a route.
func (m *Metrics) RequestCount(path, method string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if stats := m.requests[routeKey{path: path, method: method}]; stats != nil {
		return stats.count
	}
	return 0
}
