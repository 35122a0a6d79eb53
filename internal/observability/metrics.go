package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Counter names recorded outside the HTTP layer.
const (
	CounterBreachLatched      = "sla_breach_latched"
	CounterBreachDuplicate    = "sla_breach_duplicate"
	CounterStatusChanged      = "ticket_status_changed"
	CounterSessionsMounted    = "sla_sessions_mounted"
	CounterSessionsUnmounted  = "sla_sessions_unmounted"
	CounterNotificationsSent  = "notifications_sent"
	CounterNotificationFailed = "notifications_failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	counters     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		counters:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Incr bumps a named counter.
func (m *Metrics) Incr(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Counter returns the current value of a named counter.
func (m *Metrics) Counter(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// RequestStat is one route/status row of a snapshot.
type RequestStat struct {
	Key          string  `json:"key"`
	Count        int64   `json:"count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests []RequestStat    `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Counters map[string]int64 `json:"counters"`
}

// Snapshot copies the counters for reporting.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{Errors: map[string]int64{}, Counters: map[string]int64{}}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, count := range m.requestCount {
		stat := RequestStat{Key: key, Count: count}
		if count > 0 {
			stat.AvgLatencyMS = float64(m.latencyTotal[key].Microseconds()) / float64(count) / 1000
		}
		out.Requests = append(out.Requests, stat)
	}
	sort.Slice(out.Requests, func(i, j int) bool { return out.Requests[i].Key < out.Requests[j].Key })
	for key, count := range m.errorCount {
		out.Errors[key] = count
	}
	for key, count := range m.counters {
		out.Counters[key] = count
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
