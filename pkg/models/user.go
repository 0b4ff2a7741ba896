package models

import "time"

// OAuthStatus tracks the state of the user's mailbox credential.
type OAuthStatus string

const (
	OAuthStatusValid   OAuthStatus = "valid"
	OAuthStatusExpired OAuthStatus = "expired"
	OAuthStatusRevoked OAuthStatus = "revoked"
	OAuthStatusNone    OAuthStatus = "none"
)

// User is the read-side view of a user record needed by the orchestrator,
// monitor and onboarding aggregator. Account management itself lives outside
// this service.
type User struct {
	ID                    string      `json:"id"             validate:"required"`
	Email                 string      `json:"email"          validate:"required,email"`
	EmailVerified         bool        `json:"email_verified"`
	BusinessType          string      `json:"business_type,omitempty"`
	BusinessInfoProvided  bool        `json:"business_info_provided"`
	MailboxConnected      bool        `json:"mailbox_connected"`
	OAuthStatus           OAuthStatus `json:"oauth_status"`
	OnboardingCompleted   bool        `json:"onboarding_completed"`
	OnboardingCompletedAt *time.Time  `json:"onboarding_completed_at,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// HasValidCredential reports whether the mailbox credential is usable.
func (u *User) HasValidCredential() bool {
	return u.MailboxConnected && u.OAuthStatus == OAuthStatusValid
}
