package domain

import "time"

// SLAStatus is the backend's coarse view of the SLA clock.
type SLAStatus string

const (
	SLAStatusActive    SLAStatus = "Active"
	SLAStatusPaused    SLAStatus = "Paused"
	SLAStatusCompleted SLAStatus = "Completed"
)

// SLAStatusForPhase maps a ticket phase onto the stored SLA status.
func SLAStatusForPhase(phase Phase) SLAStatus {
	switch phase {
	case PhasePaused:
		return SLAStatusPaused
	case PhaseTerminal:
		return SLAStatusCompleted
	default:
		return SLAStatusActive
	}
}

// SLARecord is the persisted SLA state for one ticket. StartTime is nil when the
// backend has not anchored the clock yet.
type SLARecord struct {
	TicketID   string
	StartTime  *time.Time
	SLAStatus  SLAStatus
	Breached   bool
	BreachedAt *time.Time
	UpdatedAt  time.Time
}

// DueDate returns StartTime+duration, or nil when the clock has no anchor.
func (r SLARecord) DueDate(duration time.Duration) *time.Time {
	if r.StartTime == nil || r.StartTime.IsZero() {
		return nil
	}
	due := r.StartTime.Add(duration)
	return &due
}
