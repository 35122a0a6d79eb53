package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/config"
	"github.com/nxdesk/sla-service/internal/events"
	"github.com/nxdesk/sla-service/internal/observability"
)

const webhookTimeout = 5 * time.Second

// SubmitFunc hands a named job to a background runner.
type SubmitFunc func(name string, job func(ctx context.Context) error) error

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	metrics    *observability.Metrics
	submit     SubmitFunc
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		metrics:    metrics,
	}
}

// UseAsync routes deliveries through submit instead of running them inline.
func (n *NotificationService) UseAsync(submit SubmitFunc) {
	n.submit = submit
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventSLAStatusChanged, n.handleSLAStatusChanged)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.deliver(ctx, "webhook", event, n.sendWebhook)
}

func (n *NotificationService) handleSLAStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.deliver(ctx, "webhook", event, n.sendWebhook)
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("SLABreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if err := n.deliver(ctx, "email", event, n.sendEmailNotificationStub); err != nil {
		return err
	}
	return n.deliver(ctx, "webhook", event, n.sendWebhook)
}

func (n *NotificationService) deliver(ctx context.Context, channel string, event events.Event, send func(context.Context, events.Event) error) error {
	job := func(ctx context.Context) error {
		if err := send(ctx, event); err != nil {
			n.metrics.Incr(observability.CounterNotificationFailed)
			return err
		}
		return nil
	}
	if n.submit == nil {
		return job(ctx)
	}
	return n.submit(channel+":"+string(event.Type)+":"+event.TicketID, job)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return nil
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	n.metrics.Incr(observability.CounterNotificationsSent)
	return nil
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	code, _, errs := fiber.Post(n.cfg.WebhookURL).
		JSON(event).
		Timeout(webhookTimeout).
		Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", event.Type, errs[0])
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook %s: unexpected status %d", event.Type, code)
	}
	n.logger.Debug("webhook delivered",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	n.metrics.Incr(observability.CounterNotificationsSent)
	return nil
}
