package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/storm-dispatch/internal/config"
	"github.com/spec-kit/storm-dispatch/internal/events"
)

// NotificationService fans dispatch events out to subscribers: every event is
// published on a Redis channel for live consumers (ops dashboards, utility
// integrations) and mirrored to the log; email and webhook delivery are
// stubbed behind config.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *redis.Client
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redisClient *redis.Client, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redisClient,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes the service to every dispatch event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventAssignmentResponded,
		events.EventSegmentOpened,
		events.EventSegmentClosed,
	} {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
	}
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("dispatch event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.publishToRedis(ctx, event)

	// creation and assignment notify the company directly; everything else
	// only fans out to webhook listeners
	switch event.Type {
	case events.EventTicketCreated, events.EventTicketAssigned:
		n.notifyEmail(event)
		n.notifyWebhook(event)
	default:
		n.notifyWebhook(event)
	}
	return nil
}

func (n *NotificationService) publishToRedis(ctx context.Context, event events.Event) {
	if n.redis == nil || strings.TrimSpace(n.cfg.EventChannel) == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("event marshal failed", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if err := n.redis.Publish(ctx, n.cfg.EventChannel, payload).Err(); err != nil {
		n.logger.Warn("event publish failed",
			zap.String("channel", n.cfg.EventChannel),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// notifyEmail is a delivery stub; it logs where a mail sender would hook in.
func (n *NotificationService) notifyEmail(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

// notifyWebhook is a delivery stub; it logs where an HTTP POST would hook in.
func (n *NotificationService) notifyWebhook(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
