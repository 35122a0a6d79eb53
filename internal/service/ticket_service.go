package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/domain"
	"github.com/nxdesk/sla-service/internal/events"
	"github.com/nxdesk/sla-service/internal/observability"
	"github.com/nxdesk/sla-service/internal/repository"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// BreachTitle is the history title recorded when a ticket first breaches.
const BreachTitle = "Ticket has breached"

// TicketService coordinates ticket status and SLA record workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	sla         repository.SLARepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	slaDuration time.Duration
	now         func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	SLARepo     repository.SLARepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	SLADuration time.Duration
}

// StatusUpdate is the outcome of UpdateStatus.
type StatusUpdate struct {
	Ticket    *domain.Ticket
	SLA       *domain.SLARecord
	OldStatus domain.TicketStatus
	Changed   bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		sla:         deps.SLARepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		slaDuration: deps.SLADuration,
		now:         time.Now,
	}
}

// SLADuration is the window used to compute due dates.
func (s *TicketService) SLADuration() time.Duration { return s.slaDuration }

// GetTicket returns the ticket or a NOT_FOUND error.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound("ticket", ticketID, err)
	}
	return ticket, nil
}

// GetSLA returns the SLA record or a NOT_FOUND error.
func (s *TicketService) GetSLA(ctx context.Context, ticketID string) (*domain.SLARecord, error) {
	record, err := s.sla.Get(ctx, ticketID)
	if err != nil {
		return nil, notFound("sla record", ticketID, err)
	}
	return record, nil
}

// ListHistory returns the ticket's audit trail.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID)
}

// UpdateStatus moves the ticket to raw and keeps sla_status in step with the
// status phase.
func (s *TicketService) UpdateStatus(ctx context.Context, actor events.Actor, ticketID, raw string) (*StatusUpdate, error) {
	newStatus, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{
			"status":  raw,
			"allowed": domain.KnownStatuses,
		})
	}

	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	record, err := s.GetSLA(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if oldStatus == newStatus {
		return &StatusUpdate{Ticket: ticket, SLA: record, OldStatus: oldStatus}, nil
	}
	if !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		})
	}

	if newStatus == domain.TicketStatusClosed {
		now := s.now()
		ticket.ClosedAt = &now
	} else if ticket.ClosedAt != nil {
		ticket.ClosedAt = nil
	}
	ticket.Status = newStatus
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus, "Status changed",
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus},
	); err != nil {
		return nil, err
	}

	phase := domain.Classify(newStatus)
	if slaStatus := domain.SLAStatusForPhase(phase); slaStatus != record.SLAStatus {
		oldSLA := record.SLAStatus
		record, err = s.sla.UpdateStatus(ctx, ticket.ID, slaStatus)
		if err != nil {
			return nil, err
		}
		if err := s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeSLAStatus, "SLA "+string(slaStatus),
			map[string]any{"sla_status": oldSLA},
			map[string]any{"sla_status": slaStatus},
		); err != nil {
			return nil, err
		}
		s.publishEvent(ctx, events.NewEvent(events.EventSLAStatusChanged, ticket.ID, actor, events.SLAStatusChangedPayload{
			OldStatus: oldSLA,
			NewStatus: slaStatus,
		}))
	}

	s.metrics.Incr(observability.CounterStatusChanged)
	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actor, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Phase:     phase,
	}))
	return &StatusUpdate{Ticket: ticket, SLA: record, OldStatus: oldStatus, Changed: true}, nil
}

// ReportBreach latches the breach flag. Only the first report records history
// and publishes sla_breached; later reports return the stored record.
func (s *TicketService) ReportBreach(ctx context.Context, actor events.Actor, ticketID string) (*domain.SLARecord, bool, error) {
	now := s.now().UTC()
	record, latched, err := s.sla.MarkBreached(ctx, ticketID, now)
	if err != nil {
		return nil, false, notFound("sla record", ticketID, err)
	}
	if !latched {
		s.metrics.Incr(observability.CounterBreachDuplicate)
		return record, false, nil
	}

	due := record.DueDate(s.slaDuration)
	if due != nil && now.Before(*due) {
		s.logger.Warn("breach reported before due date",
			zap.String("ticket_id", ticketID),
			zap.Time("due", *due))
	}
	if err := s.recordHistory(ctx, actor, ticketID, domain.ChangeTypeBreach, BreachTitle,
		map[string]any{"breached": false},
		map[string]any{"breached": true, "breached_at": now},
	); err != nil {
		return nil, false, err
	}
	s.metrics.Incr(observability.CounterBreachLatched)
	s.publishEvent(ctx, events.NewEvent(events.EventSLABreached, ticketID, actor, events.SLABreachedPayload{
		StartTime:  record.StartTime,
		DueDate:    due,
		BreachedAt: now,
	}))
	return record, true, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (s *TicketService) recordHistory(ctx context.Context, actor events.Actor, ticketID string, changeType domain.TicketChangeType, title string, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		ChangedByID: actor.SubjectID,
		ChangeType:  changeType,
		Title:       title,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	return s.history.Create(ctx, entry)
}

// ActorFromSubject builds the event actor for an authenticated caller.
func ActorFromSubject(subject domain.SubjectType, id string) events.Actor {
	actor := events.Actor{Type: subject}
	if id != "" {
		actor.SubjectID = &id
	}
	return actor
}

// Closed and Cancelled are final; every other move is allowed.
func isValidTransition(current, next domain.TicketStatus) bool {
	switch current {
	case domain.TicketStatusClosed, domain.TicketStatusCancelled:
		return false
	}
	return current != next
}

func notFound(resource, ticketID string, err error) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"ticket_id": ticketID})
	}
	return err
}
