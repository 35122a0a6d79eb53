package sla

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nxdesk/sla-service/internal/clock"
	"github.com/nxdesk/sla-service/internal/domain"
)

type fakeTicketAPI struct {
	mu          sync.Mutex
	statuses    map[string]domain.TicketStatus
	records     map[string]domain.SLARecord
	statusErr   error
	recordErr   error
	reportErr   error
	onStatus    func()
	statusCalls int
	recordCalls int
	reports     []string
	tokens      []string
}

func newFakeTicketAPI() *fakeTicketAPI {
	return &fakeTicketAPI{
		statuses: map[string]domain.TicketStatus{},
		records:  map[string]domain.SLARecord{},
	}
}

func (f *fakeTicketAPI) put(ticketID string, status domain.TicketStatus, start *time.Time, breached bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[ticketID] = status
	f.records[ticketID] = domain.SLARecord{
		TicketID:  ticketID,
		StartTime: start,
		SLAStatus: domain.SLAStatusActive,
		Breached:  breached,
	}
}

func (f *fakeTicketAPI) TicketStatus(_ context.Context, token, ticketID string) (domain.TicketStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	f.tokens = append(f.tokens, token)
	hook := f.onStatus
	status, err := f.statuses[ticketID], f.statusErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return status, err
}

func (f *fakeTicketAPI) SLARecord(_ context.Context, _ string, ticketID string) (domain.SLARecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++
	if f.recordErr != nil {
		return domain.SLARecord{}, f.recordErr
	}
	return f.records[ticketID], nil
}

func (f *fakeTicketAPI) ReportBreach(_ context.Context, _ string, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, ticketID)
	return f.reportErr
}

func (f *fakeTicketAPI) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type fakeLedger struct {
	mu       sync.Mutex
	claimed  map[string]bool
	claimErr error
	released []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{claimed: map[string]bool{}}
}

func (l *fakeLedger) Claim(_ context.Context, ticketID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimErr != nil {
		return false, l.claimErr
	}
	if l.claimed[ticketID] {
		return false, nil
	}
	l.claimed[ticketID] = true
	return true, nil
}

func (l *fakeLedger) Release(_ context.Context, ticketID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, ticketID)
	l.released = append(l.released, ticketID)
	return nil
}

var errBackendDown = errors.New("backend down")

func syncDispatch(f func()) { f() }

func ago(clk *clock.Mock, d time.Duration) *time.Time {
	t := clk.Now().Add(-d)
	return &t
}

func newTestEngine(clk *clock.Mock, api *fakeTicketAPI, ledger BreachLedger, ticketID string) *Engine {
	opts := Options{
		TicketID:    ticketID,
		API:         api,
		Credentials: staticToken("tok"),
		Clock:       clk,
		Dispatch:    syncDispatch,
	}
	if ledger != nil {
		opts.Ledger = ledger
	}
	engine, err := NewEngine(opts)
	if err != nil {
		panic(err)
	}
	return engine
}
