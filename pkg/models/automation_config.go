// Package models defines the core domain models for email automation provisioning.
package models

// BusinessCategory is a user-defined bucket for incoming mail.
type BusinessCategory struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Description string `json:"description"`
}

// LabelMapping links a business category to a label in the user's mailbox.
type LabelMapping struct {
	CategoryName      string `json:"category_name"       validate:"required"`
	ExternalLabelID   string `json:"external_label_id"   validate:"required"`
	ExternalLabelName string `json:"external_label_name"`
}

// TeamMember is a notification target for categorized mail.
type TeamMember struct {
	Name         string `json:"name"`
	Email        string `json:"email"         validate:"required,email"`
	CategoryName string `json:"category_name,omitempty"`
	Notify       bool   `json:"notify"`
}

// AutomationConfig is the user's business configuration that drives workflow
// generation. A deployment stores a snapshot of the config it was built from;
// the config itself is only mutated during onboarding.
type AutomationConfig struct {
	BusinessCategories []BusinessCategory `json:"business_categories" validate:"required,min=1,dive"`
	LabelMappings      []LabelMapping     `json:"label_mappings"      validate:"dive"`
	TeamMembers        []TeamMember       `json:"team_members"        validate:"dive"`
}

// NotifiedEmails returns the emails of team members that opted into
// notifications, preserving input order.
func (c AutomationConfig) NotifiedEmails() []string {
	emails := make([]string, 0, len(c.TeamMembers))

	for _, member := range c.TeamMembers {
		if member.Notify && member.Email != "" {
			emails = append(emails, member.Email)
		}
	}

	return emails
}
