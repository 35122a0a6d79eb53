package sla

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/domain"
)

var (
	ErrUnknownSession = errors.New("sla: unknown session")
	ErrEmptySessionID = errors.New("sla: session id is required")
	ErrRegistryClosed = errors.New("sla: registry closed")
)

// EngineFactory builds an engine for ticketID using the mounting caller's credentials.
type EngineFactory func(ticketID string, creds Credentials) (*Engine, error)

type mounted struct {
	engine *Engine
	cancel context.CancelFunc
}

// Registry keeps at most one engine per view session.
type Registry struct {
	factory  EngineFactory
	logger   *zap.Logger
	dispatch func(func())

	mu       sync.Mutex
	sessions map[string]*mounted
	closed   bool
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithInitDispatch overrides how engine initialization is run. The default is a goroutine.
func WithInitDispatch(dispatch func(func())) RegistryOption {
	return func(r *Registry) {
		if dispatch != nil {
			r.dispatch = dispatch
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(factory EngineFactory, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		factory:  factory,
		logger:   logger,
		dispatch: func(f func()) { go f() },
		sessions: make(map[string]*mounted),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount shows ticketID in the session. Mounting the ticket already shown keeps the
// engine unless its load failed, in which case it is rebuilt and refetched with creds.
// A different ticket tears the previous engine down before the new one is created.
func (r *Registry) Mount(sessionID, ticketID string, creds Credentials) (DisplayState, error) {
	sessionID = strings.TrimSpace(sessionID)
	ticketID = strings.TrimSpace(ticketID)
	if sessionID == "" {
		return DisplayState{}, ErrEmptySessionID
	}
	if ticketID == "" {
		return DisplayState{}, ErrEmptyTicketID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return DisplayState{}, ErrRegistryClosed
	}

	if current, ok := r.sessions[sessionID]; ok {
		if current.engine.TicketID() == ticketID && current.engine.LoadError() == nil {
			return current.engine.Display(), nil
		}
		r.teardownLocked(sessionID, current)
	}

	engine, err := r.factory(ticketID, creds)
	if err != nil {
		return DisplayState{}, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.sessions[sessionID] = &mounted{engine: engine, cancel: cancel}

	logger := r.logger.With(zap.String("session_id", sessionID), zap.String("ticket_id", ticketID))
	logger.Info("sla engine mounted")
	r.dispatch(func() {
		if err := engine.Initialize(ctx); err != nil && !errors.Is(err, ErrEngineTornDown) {
			logger.Warn("sla engine initialization failed", zap.Error(err))
		}
	})
	return engine.Display(), nil
}

// StatusChanged forwards a status notification to the session's engine.
func (r *Registry) StatusChanged(sessionID string, status domain.TicketStatus) (DisplayState, error) {
	engine, err := r.engine(sessionID)
	if err != nil {
		return DisplayState{}, err
	}
	engine.OnStatusChange(status)
	return engine.Display(), nil
}

// Display returns the session's current display state.
func (r *Registry) Display(sessionID string) (DisplayState, error) {
	engine, err := r.engine(sessionID)
	if err != nil {
		return DisplayState{}, err
	}
	return engine.Display(), nil
}

// Unmount tears down the session's engine.
func (r *Registry) Unmount(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	r.teardownLocked(sessionID, current)
	return nil
}

// Len returns the number of mounted sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears down every engine and rejects further mounts.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, current := range r.sessions {
		r.teardownLocked(id, current)
	}
	r.closed = true
}

func (r *Registry) engine(sessionID string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return current.engine, nil
}

func (r *Registry) teardownLocked(sessionID string, current *mounted) {
	current.cancel()
	current.engine.Teardown()
	delete(r.sessions, sessionID)
	r.logger.Info("sla engine torn down",
		zap.String("session_id", sessionID),
		zap.String("ticket_id", current.engine.TicketID()))
}
