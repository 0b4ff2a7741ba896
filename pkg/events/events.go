// Package events defines event types for deployment lifecycle and
// notification dispatch.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all mailbridge events.
const Topic = "mailbridge.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Deployment lifecycle events.
	DeploymentStartedEvent   EventType = "deployment.started"
	DeploymentSucceededEvent EventType = "deployment.succeeded"
	DeploymentFailedEvent    EventType = "deployment.failed"

	// Recovery monitor events.
	WorkflowReactivatedEvent EventType = "monitor.workflow.reactivated"
	ReauthRequiredEvent      EventType = "monitor.reauth.required"

	// Onboarding events.
	OnboardingCompletedEvent EventType = "onboarding.completed"

	// Notification dispatch request (consumed by the delivery worker).
	NotificationRequestedEvent EventType = "notification.requested"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the common envelope for an event.
func NewBaseEvent(eventType EventType, userID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

type DeploymentStarted struct {
	BaseEvent

	Attempt int `json:"attempt"`
}

func (e DeploymentStarted) GetType() EventType {
	return DeploymentStartedEvent
}

type DeploymentSucceeded struct {
	BaseEvent

	WorkflowID  string        `json:"workflow_id"`
	ExecutionID string        `json:"execution_id,omitempty"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration"`
}

func (e DeploymentSucceeded) GetType() EventType {
	return DeploymentSucceededEvent
}

type DeploymentFailed struct {
	BaseEvent

	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func (e DeploymentFailed) GetType() EventType {
	return DeploymentFailedEvent
}

type WorkflowReactivated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
}

func (e WorkflowReactivated) GetType() EventType {
	return WorkflowReactivatedEvent
}

type ReauthRequired struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	Reason     string `json:"reason"`
}

func (e ReauthRequired) GetType() EventType {
	return ReauthRequiredEvent
}

type OnboardingCompleted struct {
	BaseEvent

	CompletedAt time.Time `json:"completed_at"`
}

func (e OnboardingCompleted) GetType() EventType {
	return OnboardingCompletedEvent
}

type NotificationRequested struct {
	BaseEvent

	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
