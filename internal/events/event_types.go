package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/nxdesk/sla-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventSLAStatusChanged    EventType = "sla_status_changed"
	EventSLABreached         EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type      domain.SubjectType `json:"type"`
	SubjectID *string            `json:"subject_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Phase     domain.Phase        `json:"phase"`
}

// SLAStatusChangedPayload payload.
type SLAStatusChangedPayload struct {
	OldStatus domain.SLAStatus `json:"old_status"`
	NewStatus domain.SLAStatus `json:"new_status"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	StartTime  *time.Time `json:"start_time,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	BreachedAt time.Time  `json:"breached_at"`
}
