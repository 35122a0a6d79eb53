package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen           TicketStatus = "Open"
	TicketStatusInProgress     TicketStatus = "Working in progress"
	TicketStatusWaitingForUser TicketStatus = "Waiting for User Response"
	TicketStatusResolved       TicketStatus = "Resolved"
	TicketStatusClosed         TicketStatus = "Closed"
	TicketStatusCancelled      TicketStatus = "Cancelled"
)

// KnownStatuses lists the canonical statuses in workflow order.
var KnownStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingForUser,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// Phase is the SLA clock behaviour a status implies.
type Phase string

const (
	PhaseActive   Phase = "ACTIVE"
	PhasePaused   Phase = "PAUSED"
	PhaseTerminal Phase = "TERMINAL"
)

var statusAliases = map[string]TicketStatus{
	"open":                      TicketStatusOpen,
	"working in progress":       TicketStatusInProgress,
	"work in progress":          TicketStatusInProgress,
	"in progress":               TicketStatusInProgress,
	"waiting for user response": TicketStatusWaitingForUser,
	"waiting for users":         TicketStatusWaitingForUser,
	"waiting for user":          TicketStatusWaitingForUser,
	"resolved":                  TicketStatusResolved,
	"closed":                    TicketStatusClosed,
	"cancelled":                 TicketStatusCancelled,
	"canceled":                  TicketStatusCancelled,
}

// ParseTicketStatus folds case and known spelling variants onto the canonical status.
// Unknown values are returned trimmed with ok=false.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	trimmed := strings.TrimSpace(raw)
	if status, ok := statusAliases[strings.ToLower(trimmed)]; ok {
		return status, true
	}
	return TicketStatus(trimmed), false
}

// Classify maps a status onto the SLA phase. Unrecognised statuses keep the clock running.
func Classify(status TicketStatus) Phase {
	canonical, _ := ParseTicketStatus(string(status))
	switch canonical {
	case TicketStatusWaitingForUser:
		return PhasePaused
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return PhaseTerminal
	default:
		return PhaseActive
	}
}

// BreachEligible reports whether the SLA can breach while the ticket sits in status.
func BreachEligible(status TicketStatus) bool {
	return Classify(status) == PhaseActive
}

// Ticket is the subset of the ticket aggregate the SLA backend owns.
type Ticket struct {
	ID        string
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}
