// Package main provides the MailBridge recovery monitor daemon. It sweeps
// every deployed workflow on a fixed schedule: reactivating inactive
// workflows, detecting staleness and routing credential problems to re-auth.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/mailbridge/mailbridge/pkg/cmd"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/log"
	"github.com/mailbridge/mailbridge/pkg/monitor"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/otelhelper"
)

const defaultSchedule = "*/5 * * * *"

func main() {
	logger := log.WithModule("monitor")

	command := &cli.Command{
		Name:                  "mailbridge-monitor",
		Usage:                 "Start the workflow recovery monitor",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Name:    "schedule",
				Usage:   "Cron schedule for the recovery sweep",
				Value:   defaultSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum concurrent per-user sweeps",
				Value:   0,
				Sources: cli.EnvVars("SWEEP_CONCURRENCY"),
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

			tracerProvider, err := otelhelper.NewTracerProvider(ctx, "mailbridge-monitor")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Initializing MailBridge Monitor", "schedule", command.String("schedule"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(
				command.String("event-bus"),
				"mailbridge-monitor",
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

			consumer := notification.NewConsumer(eventBus, notification.LogDeliverer(logger), logger)
			if err := consumer.Start(ctx); err != nil {
				return fmt.Errorf("failed to start notification consumer: %w", err)
			}

			mon := monitor.NewMonitor(
				client,
				persistence,
				dispatcher,
				eventBus,
				locker,
				command.String("reauth-url"),
				command.Int("concurrency"),
				nil,
				logger,
			)

			scheduler := cron.New()

			_, err = scheduler.AddFunc(command.String("schedule"), func() {
				result, err := mon.SweepAll(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Batch sweep failed", "error", err)

					return
				}

				logger.InfoContext(ctx, "Batch sweep finished",
					"users_swept", result.UsersSwept,
					"actions_taken", result.ActionsTaken,
					"errors", result.Errors,
				)
			})
			if err != nil {
				return fmt.Errorf("invalid sweep schedule: %w", err)
			}

			scheduler.Start()
			defer scheduler.Stop()

			<-ctx.Done()

			logger.Info("Shutting down monitor")

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		panic(err)
	}
}
