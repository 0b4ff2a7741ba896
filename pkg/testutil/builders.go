// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/mailbridge/mailbridge/pkg/models"
)

// CreateTestConfig creates an automation config with default values that can
// be overridden.
func CreateTestConfig(overrides ...func(*models.AutomationConfig)) models.AutomationConfig {
	config := models.AutomationConfig{
		BusinessCategories: []models.BusinessCategory{
			{Name: "New Leads", Description: "Prospects asking about services"},
			{Name: "Current Clients", Description: "Mail from existing clients"},
		},
		TeamMembers: []models.TeamMember{
			{Name: "Sam", Email: "sam@example.com", CategoryName: "New Leads", Notify: true},
		},
	}

	for _, override := range overrides {
		override(&config)
	}

	return config
}

// WithCategories replaces the business categories.
func WithCategories(names ...string) func(*models.AutomationConfig) {
	return func(c *models.AutomationConfig) {
		c.BusinessCategories = c.BusinessCategories[:0]
		for _, name := range names {
			c.BusinessCategories = append(c.BusinessCategories, models.BusinessCategory{Name: name})
		}
	}
}

// WithTeamMember appends a notified team member.
func WithTeamMember(email, category string) func(*models.AutomationConfig) {
	return func(c *models.AutomationConfig) {
		c.TeamMembers = append(c.TeamMembers, models.TeamMember{
			Email:        email,
			CategoryName: category,
			Notify:       true,
		})
	}
}

// CreateTestUser creates a fully onboardable user that can be overridden.
func CreateTestUser(overrides ...func(*models.User)) *models.User {
	now := time.Now().UTC()
	user := &models.User{
		ID:                   uuid.New().String(),
		Email:                "owner@example.com",
		EmailVerified:        true,
		BusinessType:         "plumbing",
		BusinessInfoProvided: true,
		MailboxConnected:     true,
		OAuthStatus:          models.OAuthStatusValid,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	for _, override := range overrides {
		override(user)
	}

	return user
}

// WithOAuthStatus sets the credential status.
func WithOAuthStatus(status models.OAuthStatus) func(*models.User) {
	return func(u *models.User) {
		u.OAuthStatus = status
	}
}

// WithOnboardingCompleted marks the user as already completed.
func WithOnboardingCompleted() func(*models.User) {
	return func(u *models.User) {
		now := time.Now().UTC()
		u.OnboardingCompleted = true
		u.OnboardingCompletedAt = &now
	}
}

// CreateTestDeployment creates an active deployment record that can be
// overridden.
func CreateTestDeployment(userID string, overrides ...func(*models.Deployment)) *models.Deployment {
	now := time.Now().UTC()
	deployment := &models.Deployment{
		ID:                 uuid.New().String(),
		UserID:             userID,
		ExternalWorkflowID: "wf-" + uuid.New().String()[:8],
		Name:               "Email Automation [" + userID + "]",
		Status:             models.DeploymentStatusActive,
		ConfigSnapshot:     CreateTestConfig(),
		DeployedAt:         now,
		UpdatedAt:          now,
	}

	for _, override := range overrides {
		override(deployment)
	}

	return deployment
}

// WithStatus sets the deployment status.
func WithStatus(status models.DeploymentStatus) func(*models.Deployment) {
	return func(d *models.Deployment) {
		d.Status = status
	}
}
