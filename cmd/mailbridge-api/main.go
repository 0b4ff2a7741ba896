package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/mailbridge/mailbridge/pkg/cmd"
	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/log"
	"github.com/mailbridge/mailbridge/pkg/monitor"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/onboarding"
	"github.com/mailbridge/mailbridge/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "mailbridge-api",
		Usage:                 "Deploy and manage per-user email automation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "engine-url",
				Usage:    "Base URL of the workflow engine API",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:     "engine-api-key",
				Usage:    "API key for the workflow engine",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses (event-bus=kafka)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-process locks and notification debounce",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "reauth-url",
				Usage:   "Base URL for the re-authorization deep link",
				Value:   "https://app.mailbridge.io",
				Sources: cli.EnvVars("REAUTH_URL"),
			},
			&cli.StringFlag{
				Name:    "operator-email",
				Usage:   "Recipient for deployment escalation notifications",
				Sources: cli.EnvVars("OPERATOR_EMAIL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := otelhelper.NewTracerProvider(ctx, "mailbridge-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Initializing MailBridge API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(
				command.String("event-bus"),
				"mailbridge-api",
				command.String("kafka-brokers"),
				logger,
			)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			locker, redisClient := cmd.NewLocker(command.String("redis-url"))
			if redisClient != nil {
				defer func() {
					if err := redisClient.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
					}
				}()
			}

			client := engine.NewHTTPClient(
				command.String("engine-url"),
				command.String("engine-api-key"),
				30*time.Second,
				logger,
			)

			dispatcher := notification.Dispatcher(notification.NewEventBusDispatcher(eventBus, logger))
			if redisClient != nil {
				dispatcher = notification.NewDebouncer(dispatcher, redisClient, 24*time.Hour, logger)
			}

			verifier := deploy.NewVerifier(client, nil, logger)
			orchestrator := deploy.NewOrchestrator(
				client,
				verifier,
				persistence,
				dispatcher,
				eventBus,
				locker,
				nil,
				command.String("operator-email"),
				nil,
				logger,
			)

			mon := monitor.NewMonitor(
				client,
				persistence,
				dispatcher,
				eventBus,
				locker,
				command.String("reauth-url"),
				0,
				nil,
				logger,
			)

			aggregator := onboarding.NewAggregator(client, persistence, dispatcher, eventBus, logger)

			api := NewAPI(logger, persistence, orchestrator, mon, aggregator)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
