package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
)

// DeliverFunc hands a notification request to a concrete transport.
type DeliverFunc func(ctx context.Context, request events.NotificationRequested) error

// Consumer drains NotificationRequested events from the bus and delivers
// them. Dispatchers publish fire-and-forget; one consumer per group performs
// the actual delivery.
type Consumer struct {
	bus     eventbus.EventSubscriber
	deliver DeliverFunc
	logger  *slog.Logger
}

// NewConsumer creates a delivery consumer on top of the event bus.
func NewConsumer(bus eventbus.EventSubscriber, deliver DeliverFunc, logger *slog.Logger) *Consumer {
	return &Consumer{
		bus:     bus,
		deliver: deliver,
		logger:  logger.With("module", "notification_consumer"),
	}
}

// Start registers the delivery handler and begins consuming. A delivery
// failure nacks the message so the bus redelivers it.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.bus.Handle(events.NotificationRequestedEvent, func(ctx context.Context, event any) error {
		request, ok := event.(*events.NotificationRequested)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event, events.NotificationRequestedEvent)
		}

		err := c.deliver(ctx, *request)
		if err != nil {
			c.logger.Error("Notification delivery failed",
				"to", request.To, "template", request.Template, "error", err)

			return err
		}

		c.logger.Info("Notification delivered", "to", request.To, "template", request.Template)

		return nil
	})
	if err != nil {
		return err
	}

	return c.bus.Subscribe(ctx)
}

// LogDeliverer writes each request to the service log. Used where no mail
// transport is configured.
func LogDeliverer(logger *slog.Logger) DeliverFunc {
	return func(ctx context.Context, request events.NotificationRequested) error {
		logger.InfoContext(ctx, "Notification",
			"to", request.To, "template", request.Template, "data", request.Data)

		return nil
	}
}
