package dto

import "github.com/nxdesk/sla-service/internal/domain"

// MountSessionRequest payload for PUT /sessions/:session.
type MountSessionRequest struct {
	TicketID string `json:"ticket_id"`
}

// StatusNotification payload for POST /sessions/:session/status.
type StatusNotification struct {
	Status string `json:"status"`
}

// SLADisplayResponse is the rendered SLA badge for a session.
type SLADisplayResponse struct {
	SessionID        string              `json:"session_id"`
	TicketID         string              `json:"ticket_id"`
	FormattedTime    string              `json:"formatted_time"`
	ColorClass       string              `json:"color_class"`
	Tier             string              `json:"tier"`
	StatusMessage    string              `json:"status_message"`
	Icon             string              `json:"icon"`
	Status           domain.TicketStatus `json:"status,omitempty"`
	Phase            domain.Phase        `json:"phase,omitempty"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	RemainingKnown   bool                `json:"remaining_known"`
	Breached         bool                `json:"breached"`
	Loading          bool                `json:"loading"`
	Error            string              `json:"error,omitempty"`
}
