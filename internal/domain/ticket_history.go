package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus    TicketChangeType = "STATUS_CHANGE"
	ChangeTypeSLAStatus TicketChangeType = "SLA_STATUS_CHANGE"
	ChangeTypeBreach    TicketChangeType = "SLA_BREACH"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  TicketChangeType
	Title       string
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
