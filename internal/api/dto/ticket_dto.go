package dto

import (
	"time"

	"github.com/nxdesk/sla-service/internal/domain"
)

// Envelope wraps successful responses.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the domain error code.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// TicketStatusResponse for GET /tickets/:id/status.
type TicketStatusResponse struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status string `json:"status"`
}

// SLARecordResponse for GET /tickets/:id/sla.
type SLARecordResponse struct {
	TicketID   string           `json:"ticket_id"`
	StartTime  *time.Time       `json:"start_time"`
	SLAStatus  domain.SLAStatus `json:"sla_status"`
	Breached   bool             `json:"breached"`
	BreachedAt *time.Time       `json:"breached_at"`
	SLADueDate *time.Time       `json:"sla_due_date"`
}

// BreachReportRequest payload.
type BreachReportRequest struct {
	Breached bool `json:"breached"`
}

// BreachReportResponse acknowledges a breach report.
type BreachReportResponse struct {
	TicketID        string     `json:"ticket_id"`
	Breached        bool       `json:"breached"`
	BreachedAt      *time.Time `json:"breached_at"`
	AlreadyBreached bool       `json:"already_breached"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	Title       string                  `json:"title"`
	ChangedByID *string                 `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
