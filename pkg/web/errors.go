package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleDeployError maps orchestrator errors onto stable problem types. Raw
// engine error strings never reach the response body.
func handleDeployError(c fiber.Ctx, err error) error {
	switch {
	case deploy.IsConfigInvalid(err):
		return badRequest(c, "automation config is invalid")

	case deploy.IsExhaustedRetries(err):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("deployment_failed").
			WithDetail("automation setup failed, retry available")

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	case persistence.IsUserNotFound(err):
		return notFound(c, "user not found")

	default:
		return internalError(c, err)
	}
}
