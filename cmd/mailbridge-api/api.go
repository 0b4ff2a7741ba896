// Package main provides the MailBridge API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/monitor"
	"github.com/mailbridge/mailbridge/pkg/onboarding"
	"github.com/mailbridge/mailbridge/pkg/persistence"
	"github.com/mailbridge/mailbridge/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	orchestrator *deploy.Orchestrator
	monitor      *monitor.Monitor
	aggregator   *onboarding.Aggregator
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	orchestrator *deploy.Orchestrator,
	mon *monitor.Monitor,
	aggregator *onboarding.Aggregator,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		orchestrator: orchestrator,
		monitor:      mon,
		aggregator:   aggregator,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.monitor, a.aggregator, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("MailBridge API")
	})

	u := app.Group("/users/:id")
	u.Post("/deployment", handlers.CreateDeployment)
	u.Get("/deployment", handlers.GetDeployment)
	u.Delete("/deployment", handlers.DeleteDeployment)
	u.Post("/deployment/sweep", handlers.SweepDeployment)
	u.Get("/onboarding", handlers.GetOnboarding)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
