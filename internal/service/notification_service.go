package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
)

const defaultWebhookTimeout = 3 * time.Second

// NotificationService forwards ticket events to the configured webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	webhookURL string
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     orNopLogger(logger),
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to ticket events. Without a webhook URL there is nothing to deliver.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.webhookURL == "" {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketTransferred,
		events.EventTicketStatusChanged,
		events.EventTicketReplyAdded,
	} {
		n.dispatcher.Subscribe(eventType, n.deliver)
	}
}

// deliver posts the event as JSON. Failures are reported to the dispatcher,
// which logs them without affecting the committed change.
func (n *NotificationService) deliver(_ context.Context, event events.Event) error {
	agent := fiber.Post(n.webhookURL)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("webhook url: %w", err)
	}
	code, _, errs := agent.Timeout(n.timeout).JSON(event).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery: %w", errs[0])
	}
	if code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook delivery: unexpected status %d", code)
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("status", code))
	return nil
}
