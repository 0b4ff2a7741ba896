package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/mocks"
	"github.com/mailbridge/mailbridge/pkg/notification"
)

func TestEventBusDispatcher_PublishesKeyedByRecipient(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}

	var published eventbus.Event

	bus.On("Publish", mock.Anything, "owner@example.com", mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(2).(eventbus.Event)
		}).Return(nil)

	dispatcher := notification.NewEventBusDispatcher(bus, slog.Default())

	err := dispatcher.Send(context.Background(), notification.Message{
		To:       "owner@example.com",
		Template: notification.TemplateReauthPrompt,
		Data:     map[string]any{"reauth_url": "https://app.example.com/reauth?user=user-1"},
	})
	require.NoError(t, err)

	require.NotNil(t, published)
	assert.Equal(t, events.NotificationRequestedEvent, published.GetType())

	request, ok := published.(events.NotificationRequested)
	require.True(t, ok)
	assert.Equal(t, "owner@example.com", request.To)
	assert.Equal(t, notification.TemplateReauthPrompt, request.Template)
}

func TestEventBusDispatcher_PropagatesPublishFailure(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	dispatcher := notification.NewEventBusDispatcher(bus, slog.Default())

	err := dispatcher.Send(context.Background(), notification.Message{
		To:       "owner@example.com",
		Template: notification.TemplateAutomationLive,
	})

	require.Error(t, err)
}
