package notification_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/channels/gochannel"
	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/notification"
)

func TestConsumer_DeliversPublishedRequests(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	delivered := make(chan events.NotificationRequested, 1)

	consumer := notification.NewConsumer(bus, func(ctx context.Context, request events.NotificationRequested) error {
		delivered <- request

		return nil
	}, slog.Default())
	require.NoError(t, consumer.Start(context.Background()))

	dispatcher := notification.NewEventBusDispatcher(bus, slog.Default())
	require.NoError(t, dispatcher.Send(context.Background(), notification.Message{
		To:       "owner@example.com",
		Template: notification.TemplateAutomationLive,
		Data:     map[string]any{"workflow_id": "wf-1"},
	}))

	select {
	case request := <-delivered:
		assert.Equal(t, "owner@example.com", request.To)
		assert.Equal(t, notification.TemplateAutomationLive, request.Template)
		assert.Equal(t, "wf-1", request.Data["workflow_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never delivered")
	}
}
