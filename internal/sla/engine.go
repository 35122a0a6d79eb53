// Package sla implements the per-ticket SLA countdown: deadline arithmetic, the
// ticking loop, pause/resume by ticket status, at-most-once breach reporting and
// the derived display state.
package sla

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/clock"
	"github.com/nxdesk/sla-service/internal/domain"
)

var (
	ErrEmptyTicketID      = errors.New("sla: ticket id is required")
	ErrMissingCredential  = errors.New("sla: no credential available")
	ErrMissingTicketAPI   = errors.New("sla: ticket api is required")
	ErrEngineTornDown     = errors.New("sla: engine torn down")
	ErrAlreadyInitialized = errors.New("sla: engine already initialized")
)

// TicketAPI is the slice of the ticket backend the engine reads and reports to.
type TicketAPI interface {
	TicketStatus(ctx context.Context, token, ticketID string) (domain.TicketStatus, error)
	SLARecord(ctx context.Context, token, ticketID string) (domain.SLARecord, error)
	ReportBreach(ctx context.Context, token, ticketID string) error
}

// Credentials supplies the bearer token attached to every backend call.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// BreachLedger records which tickets already had their breach reported, across sessions.
type BreachLedger interface {
	Claim(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

// Options configures an Engine. TicketID, API and Credentials are required.
type Options struct {
	TicketID    string
	API         TicketAPI
	Credentials Credentials
	Clock       clock.Clock
	Policy      Policy
	Ledger      BreachLedger
	Logger      *zap.Logger
	// Dispatch runs breach reports off the tick path. It is invoked with the engine
	// lock held and must not call back into the engine. Defaults to a goroutine.
	Dispatch func(func())
}

// Engine owns the countdown for a single ticket.
type Engine struct {
	ticketID string
	api      TicketAPI
	creds    Credentials
	clock    clock.Clock
	policy   Policy
	ledger   BreachLedger
	logger   *zap.Logger
	dispatch func(func())

	mu             sync.Mutex
	lifecycle      lifecycle
	initialized    bool
	status         domain.TicketStatus
	statusOverride *domain.TicketStatus
	record         domain.SLARecord
	remaining      int64
	known          bool
	breached       bool
	reported       bool
	ticker         clock.Ticker
	generation     uint64
	loadErr        error
}

// NewEngine validates options and returns an engine in the loading state.
func NewEngine(opts Options) (*Engine, error) {
	ticketID := strings.TrimSpace(opts.TicketID)
	if ticketID == "" {
		return nil, ErrEmptyTicketID
	}
	if opts.API == nil {
		return nil, ErrMissingTicketAPI
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	policy := opts.Policy.withDefaults()
	if err := policy.validate(); err != nil {
		return nil, err
	}
	opts.Policy = policy
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(f func()) { go f() }
	}
	return &Engine{
		ticketID: ticketID,
		api:      opts.API,
		creds:    opts.Credentials,
		clock:    opts.Clock,
		policy:   opts.Policy,
		ledger:   opts.Ledger,
		logger:   opts.Logger.With(zap.String("ticket_id", ticketID)),
		dispatch: opts.Dispatch,
	}, nil
}

// TicketID returns the ticket this engine counts down for.
func (e *Engine) TicketID() string { return e.ticketID }

// Initialize fetches the ticket status and then the SLA record and starts the
// countdown when the ticket is running. Any failure leaves the engine in the
// load-error state with no ticker registered.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return ErrAlreadyInitialized
	}
	e.initialized = true
	e.mu.Unlock()

	token, err := e.token(ctx)
	if err != nil {
		return e.fail(err)
	}
	status, err := e.api.TicketStatus(ctx, token, e.ticketID)
	if err != nil {
		return e.fail(fmt.Errorf("fetch ticket status: %w", err))
	}
	record, err := e.api.SLARecord(ctx, token, e.ticketID)
	if err != nil {
		return e.fail(fmt.Errorf("fetch sla record: %w", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lifecycle == lifecycleTornDown {
		return ErrEngineTornDown
	}

	e.status = e.policy.Normalize(string(status))
	if e.statusOverride != nil {
		e.status = *e.statusOverride
		e.statusOverride = nil
	}
	e.record = record
	e.breached = record.Breached
	e.reported = record.Breached
	if record.StartTime != nil && !record.StartTime.IsZero() {
		e.known = true
		e.remaining = RemainingSeconds(*record.StartTime, e.policy.Duration, e.clock.Now())
	}
	e.lifecycle = lifecycleReady

	phase := domain.Classify(e.status)
	if e.known && phase == domain.PhaseActive {
		e.latchIfOverdueLocked()
		e.startLocked()
	}

	e.logger.Info("sla engine initialized",
		zap.String("status", string(e.status)),
		zap.String("phase", string(phase)),
		zap.Bool("start_time_known", e.known),
		zap.Int64("remaining_seconds", e.remaining),
		zap.Bool("breached", e.breached))
	return nil
}

// OnStatusChange applies a ticket status transition pushed by the host.
// Paused and terminal statuses freeze the countdown; returning to an active
// status resumes from the frozen value.
func (e *Engine) OnStatusChange(raw domain.TicketStatus) {
	status := e.policy.Normalize(string(raw))

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.lifecycle {
	case lifecycleLoading:
		e.statusOverride = &status
		return
	case lifecycleReady:
	default:
		return
	}

	previous := e.status
	e.status = status
	phase := domain.Classify(status)
	if phase != domain.PhaseActive {
		e.stopLocked()
	} else if e.known && e.ticker == nil {
		e.latchIfOverdueLocked()
		e.startLocked()
	}

	e.logger.Debug("ticket status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("phase", string(phase)),
		zap.Int64("remaining_seconds", e.remaining))
}

// Teardown cancels the countdown. Once it returns no tick mutates the engine.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.lifecycle = lifecycleTornDown
}

// Display derives the renderable state without side effects.
func (e *Engine) Display() DisplayState {
	e.mu.Lock()
	s := snapshot{
		ticketID:  e.ticketID,
		lifecycle: e.lifecycle,
		status:    e.status,
		remaining: e.remaining,
		known:     e.known,
		breached:  e.breached,
	}
	e.mu.Unlock()
	return derive(s, e.policy)
}

// Remaining returns the stored countdown and whether it is known.
func (e *Engine) Remaining() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining, e.known
}

// Breached reports the local breach latch.
func (e *Engine) Breached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breached
}

// Running reports whether a ticker is registered.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticker != nil
}

// LoadError returns the initialization failure, if any.
func (e *Engine) LoadError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

func (e *Engine) tick(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation || e.ticker == nil {
		return
	}
	e.remaining--
	if e.remaining <= 0 && !e.breached && domain.BreachEligible(e.status) {
		e.breached = true
		e.logger.Warn("sla breached", zap.Int64("remaining_seconds", e.remaining))
		e.reportBreachLocked()
	}
}

// latchIfOverdueLocked handles a countdown that is already at or below zero when
// the clock (re)starts, which no tick would ever cross.
func (e *Engine) latchIfOverdueLocked() {
	if e.breached || e.remaining > 0 || !domain.BreachEligible(e.status) {
		return
	}
	e.breached = true
	e.logger.Warn("sla already overdue", zap.Int64("remaining_seconds", e.remaining))
	e.reportBreachLocked()
}

func (e *Engine) startLocked() {
	if e.ticker != nil {
		return
	}
	e.generation++
	generation := e.generation
	e.ticker = e.clock.NewTicker(e.policy.TickInterval, func() { e.tick(generation) })
}

func (e *Engine) stopLocked() {
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	e.ticker = nil
	e.generation++
}

func (e *Engine) reportBreachLocked() {
	if e.reported {
		return
	}
	e.reported = true
	e.dispatch(e.sendBreachReport)
}

func (e *Engine) sendBreachReport() {
	ctx := context.Background()
	if e.ledger != nil {
		claimed, err := e.ledger.Claim(ctx, e.ticketID)
		switch {
		case err != nil:
			e.logger.Warn("breach ledger unavailable; reporting anyway", zap.Error(err))
		case !claimed:
			e.logger.Info("breach already reported by another session")
			return
		}
	}

	token, err := e.token(ctx)
	if err == nil {
		err = e.api.ReportBreach(ctx, token, e.ticketID)
	}
	if err != nil {
		e.logger.Warn("breach report failed", zap.Error(err))
		if e.ledger != nil {
			if relErr := e.ledger.Release(ctx, e.ticketID); relErr != nil {
				e.logger.Warn("release breach claim", zap.Error(relErr))
			}
		}
		return
	}
	e.logger.Info("breach reported")
}

func (e *Engine) token(ctx context.Context) (string, error) {
	if e.creds == nil {
		return "", ErrMissingCredential
	}
	token, err := e.creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

func (e *Engine) fail(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lifecycle == lifecycleTornDown {
		return ErrEngineTornDown
	}
	e.stopLocked()
	e.lifecycle = lifecycleFailed
	e.loadErr = err
	e.logger.Warn("sla engine failed to load", zap.Error(err))
	return err
}
