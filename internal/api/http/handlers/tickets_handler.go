package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nxdesk/sla-service/internal/api/dto"
	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/domain"
	"github.com/nxdesk/sla-service/internal/events"
	"github.com/nxdesk/sla-service/internal/service"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// TicketsHandler serves ticket status and SLA record endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// GetStatus GET /tickets/:id/status.
func (h *TicketsHandler) GetStatus(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.TicketStatusResponse]{Data: dto.TicketStatusResponse{
		TicketID: ticket.ID,
		Status:   ticket.Status,
	}})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Status) == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	update, err := h.service.UpdateStatus(c.UserContext(), actorFor(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.TicketStatusResponse]{Data: dto.TicketStatusResponse{
		TicketID: update.Ticket.ID,
		Status:   update.Ticket.Status,
	}})
}

// GetSLA GET /tickets/:id/sla.
func (h *TicketsHandler) GetSLA(c *fiber.Ctx) error {
	record, err := h.service.GetSLA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.SLARecordResponse]{Data: slaRecordResponse(record, h.service)})
}

// ReportBreach POST /tickets/:id/sla/breach.
func (h *TicketsHandler) ReportBreach(c *fiber.Ctx) error {
	var req dto.BreachReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Breached {
		return apperrors.NewValidationError("breached must be true", nil)
	}

	record, latched, err := h.service.ReportBreach(c.UserContext(), actorFor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope[dto.BreachReportResponse]{Data: dto.BreachReportResponse{
		TicketID:        record.TicketID,
		Breached:        record.Breached,
		BreachedAt:      record.BreachedAt,
		AlreadyBreached: !latched,
	}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	entries, err := h.service.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			Title:       entry.Title,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func slaRecordResponse(record *domain.SLARecord, svc *service.TicketService) dto.SLARecordResponse {
	return dto.SLARecordResponse{
		TicketID:   record.TicketID,
		StartTime:  record.StartTime,
		SLAStatus:  record.SLAStatus,
		Breached:   record.Breached,
		BreachedAt: record.BreachedAt,
		SLADueDate: record.DueDate(svc.SLADuration()),
	}
}

func actorFor(c *fiber.Ctx) events.Actor {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return events.Actor{}
	}
	return service.ActorFromSubject(principal.SubjectType, principal.SubjectID)
}
