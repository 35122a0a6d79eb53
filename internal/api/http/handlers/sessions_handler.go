package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nxdesk/sla-service/internal/api/dto"
	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/domain"
	"github.com/nxdesk/sla-service/internal/observability"
	"github.com/nxdesk/sla-service/internal/sla"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// SessionsHandler hosts one SLA engine per UI view session.
type SessionsHandler struct {
	registry *sla.Registry
	fallback auth.Provider
	metrics  *observability.Metrics
}

// NewSessionsHandler constructs handler. fallback supplies the backend token
// when a caller mounts without a bearer of its own; it may be nil.
func NewSessionsHandler(registry *sla.Registry, fallback auth.Provider, metrics *observability.Metrics) *SessionsHandler {
	return &SessionsHandler{registry: registry, fallback: fallback, metrics: metrics}
}

// Mount PUT /sessions/:session.
func (h *SessionsHandler) Mount(c *fiber.Ctx) error {
	var req dto.MountSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	creds := auth.ChainCredentials{}
	if token, err := auth.BearerToken(c); err == nil {
		creds = append(creds, auth.BearerCredentials(token))
	}
	if h.fallback != nil {
		creds = append(creds, h.fallback)
	}

	sessionID := c.Params("session")
	state, err := h.registry.Mount(sessionID, req.TicketID, creds)
	if err != nil {
		return sessionError(err)
	}
	h.metrics.Incr(observability.CounterSessionsMounted)
	return c.JSON(dto.Envelope[dto.SLADisplayResponse]{Data: displayResponse(sessionID, state)})
}

// Display GET /sessions/:session.
func (h *SessionsHandler) Display(c *fiber.Ctx) error {
	sessionID := c.Params("session")
	state, err := h.registry.Display(sessionID)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(dto.Envelope[dto.SLADisplayResponse]{Data: displayResponse(sessionID, state)})
}

// StatusChanged POST /sessions/:session/status.
func (h *SessionsHandler) StatusChanged(c *fiber.Ctx) error {
	var req dto.StatusNotification
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Status) == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	sessionID := c.Params("session")
	state, err := h.registry.StatusChanged(sessionID, domain.TicketStatus(req.Status))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(dto.Envelope[dto.SLADisplayResponse]{Data: displayResponse(sessionID, state)})
}

// Unmount DELETE /sessions/:session.
func (h *SessionsHandler) Unmount(c *fiber.Ctx) error {
	if err := h.registry.Unmount(c.Params("session")); err != nil {
		return sessionError(err)
	}
	h.metrics.Incr(observability.CounterSessionsUnmounted)
	return c.SendStatus(fiber.StatusNoContent)
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, sla.ErrUnknownSession):
		return apperrors.NewNotFound("session", nil)
	case errors.Is(err, sla.ErrEmptyTicketID), errors.Is(err, sla.ErrEmptySessionID):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, sla.ErrRegistryClosed):
		return apperrors.NewDomainError("UNAVAILABLE", "shutting down", http.StatusServiceUnavailable, nil)
	default:
		return err
	}
}

func displayResponse(sessionID string, state sla.DisplayState) dto.SLADisplayResponse {
	return dto.SLADisplayResponse{
		SessionID:        sessionID,
		TicketID:         state.TicketID,
		FormattedTime:    state.FormattedTime,
		ColorClass:       state.ColorClass,
		Tier:             string(state.Tier),
		StatusMessage:    state.StatusMessage,
		Icon:             state.Icon,
		Status:           state.Status,
		Phase:            state.Phase,
		RemainingSeconds: state.RemainingSeconds,
		RemainingKnown:   state.RemainingKnown,
		Breached:         state.Breached,
		Loading:          state.Loading,
		Error:            state.Error,
	}
}
