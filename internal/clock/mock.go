package clock

import (
	"sync"
	"time"
)

// Mock is a manually advanced clock. Ticker callbacks run synchronously inside
// Advance, in firing order.
type Mock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*mockTicker
}

// NewMock creates a Mock clock set to t, or to 2024-01-01 UTC when t is zero.
func NewMock(t time.Time) *Mock {
	if t.IsZero() {
		t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Mock{current: t}
}

// Now returns the mock clock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NewTicker registers f to fire every d of mock time.
func (m *Mock) NewTicker(d time.Duration, f func()) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTicker{clock: m, interval: d, next: m.current.Add(d), fn: f}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing every ticker that comes due.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.current.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		due := m.nextDueLocked(target)
		if due == nil {
			m.current = target
			m.mu.Unlock()
			return
		}
		m.current = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		m.mu.Unlock()

		fn()
	}
}

// Set jumps the clock to t without firing tickers.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
	for _, tk := range m.tickers {
		tk.next = t.Add(tk.interval)
	}
}

// Pending returns the number of tickers that have not been stopped.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

func (m *Mock) nextDueLocked(target time.Time) *mockTicker {
	var due *mockTicker
	for _, t := range m.tickers {
		if t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) {
			due = t
		}
	}
	return due
}

func (m *Mock) remove(t *mockTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.tickers {
		if candidate == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

type mockTicker struct {
	clock    *Mock
	interval time.Duration
	next     time.Time
	fn       func()
}

func (t *mockTicker) Stop() {
	t.clock.remove(t)
}
