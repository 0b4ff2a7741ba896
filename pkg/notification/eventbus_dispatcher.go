package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
)

// EventBusDispatcher publishes notification requests on the event bus, where
// the delivery worker picks them up.
type EventBusDispatcher struct {
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

// NewEventBusDispatcher creates a dispatcher backed by the event bus.
func NewEventBusDispatcher(bus eventbus.EventPublisher, logger *slog.Logger) *EventBusDispatcher {
	return &EventBusDispatcher{
		bus:    bus,
		logger: logger.With("module", "notification_dispatcher"),
	}
}

// Send publishes a NotificationRequested event keyed by recipient.
func (d *EventBusDispatcher) Send(ctx context.Context, msg Message) error {
	event := events.NotificationRequested{
		BaseEvent: events.NewBaseEvent(events.NotificationRequestedEvent, ""),
		To:        msg.To,
		Template:  msg.Template,
		Data:      msg.Data,
	}

	err := d.bus.Publish(ctx, msg.To, event)
	if err != nil {
		return fmt.Errorf("failed to publish notification request: %w", err)
	}

	d.logger.Debug("Notification request published", "to", msg.To, "template", msg.Template)

	return nil
}
