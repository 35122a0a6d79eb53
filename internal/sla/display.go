package sla

import "github.com/nxdesk/sla-service/internal/domain"

// Tier is the urgency band used to colour the countdown.
type Tier string

const (
	TierSafe      Tier = "safe"
	TierWarning   Tier = "warning"
	TierCritical  Tier = "critical"
	TierBreached  Tier = "breached"
	TierCompleted Tier = "completed"
	TierNeutral   Tier = "neutral"
	TierError     Tier = "error"
)

const (
	colorCritical = "bg-red-100 text-red-600"
	colorWarning  = "bg-yellow-100 text-yellow-600"
	colorSafe     = "bg-green-100 text-green-600"
	colorMuted    = "bg-gray-100 text-gray-600"
	colorError    = "text-red-500"

	IconClock   = "clock"
	IconAlert   = "alert-circle"
	IconCheck   = "check-circle"
	IconLoading = "loader"

	MessageBreached = "(Breached)"
	MessageCritical = "(Critical)"
	MessagePaused   = "(Paused)"
	MessageLoading  = "Loading SLA..."
	MessageLoadFail = "SLA data unavailable"

	CompletedLabel = "Completed"
)

// DisplayState is everything a view needs to render the SLA badge.
type DisplayState struct {
	TicketID         string
	FormattedTime    string
	ColorClass       string
	Tier             Tier
	StatusMessage    string
	Icon             string
	Status           domain.TicketStatus
	Phase            domain.Phase
	RemainingSeconds int64
	RemainingKnown   bool
	Breached         bool
	Loading          bool
	Error            string
}

type lifecycle int

const (
	lifecycleLoading lifecycle = iota
	lifecycleReady
	lifecycleFailed
	lifecycleTornDown
)

// snapshot is the engine state Derive reads; it is copied out under the engine lock.
type snapshot struct {
	ticketID  string
	lifecycle lifecycle
	status    domain.TicketStatus
	remaining int64
	known     bool
	breached  bool
}

// derive is a pure function of the snapshot and policy.
func derive(s snapshot, policy Policy) DisplayState {
	out := DisplayState{
		TicketID:         s.ticketID,
		Status:           s.status,
		RemainingSeconds: s.remaining,
		RemainingKnown:   s.known,
		Breached:         s.breached,
	}

	switch s.lifecycle {
	case lifecycleLoading:
		out.FormattedTime = UnknownTime
		out.ColorClass = colorMuted
		out.Tier = TierNeutral
		out.StatusMessage = MessageLoading
		out.Icon = IconLoading
		out.Loading = true
		out.RemainingKnown = false
		return out
	case lifecycleFailed:
		out.ColorClass = colorError
		out.Tier = TierError
		out.StatusMessage = MessageLoadFail
		out.Icon = IconAlert
		out.Error = MessageLoadFail
		out.RemainingKnown = false
		return out
	}

	phase := policy.Classify(s.status)
	out.Phase = phase

	if phase == domain.PhaseTerminal {
		out.FormattedTime = CompletedLabel
		out.ColorClass = colorMuted
		out.Tier = TierCompleted
		out.StatusMessage = string(s.status)
		out.Icon = IconCheck
		return out
	}

	if s.known {
		out.FormattedTime = FormatRemaining(s.remaining)
	} else {
		out.FormattedTime = UnknownTime
	}

	out.Tier = tierFor(s, policy)
	out.ColorClass = colorFor(out.Tier)
	out.StatusMessage = annotationFor(s, phase, policy)
	out.Icon = IconClock
	if out.Tier == TierBreached {
		out.Icon = IconAlert
	}
	return out
}

func tierFor(s snapshot, policy Policy) Tier {
	switch {
	case s.breached || (s.known && s.remaining <= 0):
		return TierBreached
	case !s.known:
		return TierNeutral
	case s.remaining <= policy.criticalSeconds():
		return TierCritical
	case s.remaining <= policy.warningSeconds():
		return TierWarning
	default:
		return TierSafe
	}
}

func colorFor(tier Tier) string {
	switch tier {
	case TierBreached, TierCritical:
		return colorCritical
	case TierWarning:
		return colorWarning
	case TierSafe:
		return colorSafe
	default:
		return colorMuted
	}
}

func annotationFor(s snapshot, phase domain.Phase, policy Policy) string {
	switch {
	case s.breached:
		return MessageBreached
	case s.known && s.remaining <= 0 && phase == domain.PhaseActive:
		return MessageBreached
	case s.known && s.remaining <= policy.criticalSeconds():
		return MessageCritical
	case phase == domain.PhasePaused:
		return MessagePaused
	default:
		return ""
	}
}
