// Package notification provides fire-and-forget templated message dispatch.
package notification

import (
	"context"
)

// Template ids understood by the delivery worker.
const (
	TemplateReauthPrompt       = "reauth-prompt"
	TemplateOperatorEscalation = "deployment-escalation"
	TemplateAutomationLive     = "automation-live"
)

// Message is a templated notification request.
type Message struct {
	To       string         `json:"to"       validate:"required,email"`
	Template string         `json:"template" validate:"required"`
	Data     map[string]any `json:"data,omitempty"`
}

// Dispatcher sends templated messages. Dispatch is fire-and-forget: callers
// log failures but never roll back state transitions already committed.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
