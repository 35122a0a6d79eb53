// Package client talks to the ticket backend's SLA endpoints over REST.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/api/dto"
	"github.com/nxdesk/sla-service/internal/domain"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

// Client implements the SLA engine's TicketAPI against the backend.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a client for baseURL. A zero timeout leaves requests unbounded
// unless the context carries a deadline.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// TicketStatus GET /tickets/:id/status.
func (c *Client) TicketStatus(ctx context.Context, token, ticketID string) (domain.TicketStatus, error) {
	var out dto.Envelope[dto.TicketStatusResponse]
	if err := c.do(ctx, fiber.Get(c.ticketURL(ticketID, "status")), token, &out); err != nil {
		return "", err
	}
	return out.Data.Status, nil
}

// SLARecord GET /tickets/:id/sla.
func (c *Client) SLARecord(ctx context.Context, token, ticketID string) (domain.SLARecord, error) {
	var out dto.Envelope[dto.SLARecordResponse]
	if err := c.do(ctx, fiber.Get(c.ticketURL(ticketID, "sla")), token, &out); err != nil {
		return domain.SLARecord{}, err
	}
	return domain.SLARecord{
		TicketID:   out.Data.TicketID,
		StartTime:  out.Data.StartTime,
		SLAStatus:  out.Data.SLAStatus,
		Breached:   out.Data.Breached,
		BreachedAt: out.Data.BreachedAt,
	}, nil
}

// ReportBreach POST /tickets/:id/sla/breach.
func (c *Client) ReportBreach(ctx context.Context, token, ticketID string) error {
	agent := fiber.Post(c.ticketURL(ticketID, "sla/breach")).JSON(dto.BreachReportRequest{Breached: true})
	return c.do(ctx, agent, token, nil)
}

func (c *Client) ticketURL(ticketID, suffix string) string {
	return fmt.Sprintf("%s/tickets/%s/%s", c.baseURL, url.PathEscape(ticketID), suffix)
}

func (c *Client) do(ctx context.Context, agent *fiber.Agent, token string, out any) error {
	timeout, err := c.effectiveTimeout(ctx)
	if err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	method := string(agent.Request().Header.Method())
	uri := agent.Request().URI().String()
	started := time.Now()
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("url", uri), zap.Error(err))
		return fmt.Errorf("backend %s %s: %w", method, uri, err)
	}
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("url", uri),
		zap.Int("status", code),
		zap.Duration("latency", time.Since(started)))

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		var envelope dto.ErrorEnvelope
		_ = json.Unmarshal(body, &envelope)
		return apperrors.NewUpstreamError(code, envelope.Error.Code, envelope.Error.Message)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func (c *Client) effectiveTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}
