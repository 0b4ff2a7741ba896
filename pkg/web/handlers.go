// Package web provides the HTTP handlers for deployment, sweep and
// onboarding endpoints.
package web

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/monitor"
	"github.com/mailbridge/mailbridge/pkg/onboarding"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

type APIHandlers struct {
	orchestrator *deploy.Orchestrator
	monitor      *monitor.Monitor
	aggregator   *onboarding.Aggregator
	persistence  persistence.Persistence
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *deploy.Orchestrator,
	mon *monitor.Monitor,
	aggregator *onboarding.Aggregator,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		monitor:      mon,
		aggregator:   aggregator,
		persistence:  persistence,
		validator:    validator,
	}
}

// CreateDeployment deploys the user's customized workflow. The call is
// synchronous and can take tens of seconds when the engine misbehaves: the
// retry schedule runs inside the request.
func (h *APIHandlers) CreateDeployment(c fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	var req DeployRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	if err := h.persistence.ConfigRepository().Save(c.Context(), userID, &req.Config); err != nil {
		return internalError(c, err)
	}

	result, err := h.orchestrator.Deploy(c.Context(), userID, req.Config)
	if err != nil {
		return handleDeployError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(DeployResponse{
		WorkflowID: result.WorkflowID,
		Status:     result.Status,
		Attempts:   result.Attempts,
	})
}

func (h *APIHandlers) GetDeployment(c fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	deployment, err := h.persistence.DeploymentRepository().GetByUserID(c.Context(), userID)
	if err != nil {
		if persistence.IsDeploymentNotFound(err) {
			return notFound(c, "Deployment not found")
		}

		return internalError(c, err)
	}

	return c.JSON(toDeploymentResponse(deployment))
}

// DeleteDeployment soft-deletes the record. Engine-side removal is handled by
// the orchestrator on the next deploy; the record delete alone stops the
// monitor from sweeping this user.
func (h *APIHandlers) DeleteDeployment(c fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	if err := h.persistence.DeploymentRepository().Delete(c.Context(), userID); err != nil {
		if persistence.IsDeploymentNotFound(err) {
			return notFound(c, "Deployment not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// SweepDeployment triggers an on-demand recovery sweep for one user, the same
// pass the scheduled monitor runs.
func (h *APIHandlers) SweepDeployment(c fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	result, err := h.monitor.Sweep(c.Context(), userID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetOnboarding(c fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "User ID is required")
	}

	validation, err := h.aggregator.Validate(c.Context(), userID)
	if err != nil {
		if persistence.IsUserNotFound(err) {
			return notFound(c, "User not found")
		}

		return internalError(c, err)
	}

	return c.JSON(validation)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	checks := fiber.Map{"database": "ok"}

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		checks["database"] = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
