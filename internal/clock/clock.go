// Package clock abstracts wall-clock reads and recurring callbacks so the SLA
// countdown can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by the SLA engine.
type Clock interface {
	Now() time.Time
	// NewTicker calls f every d until the returned Ticker is stopped.
	NewTicker(d time.Duration, f func()) Ticker
}

// Ticker is a recurring callback registration.
type Ticker interface {
	// Stop cancels future callbacks. It does not wait for a callback that is
	// already running.
	Stop()
}

// Real is the production clock backed by the time package.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// NewTicker starts a goroutine that invokes f on every tick.
func (Real) NewTicker(d time.Duration, f func()) Ticker {
	rt := &realTicker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go rt.run(f)
	return rt
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTicker) run(f func()) {
	for {
		select {
		case <-t.ticker.C:
			f()
		case <-t.done:
			return
		}
	}
}

func (t *realTicker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
