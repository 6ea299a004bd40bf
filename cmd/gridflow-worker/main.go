// Package main provides the GridFlow automation worker.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/automation"
	"github.com/gridflow/gridflow/pkg/cmd"
	"github.com/gridflow/gridflow/pkg/config"
	"github.com/gridflow/gridflow/pkg/dispatcher"
	"github.com/gridflow/gridflow/pkg/log"
	"github.com/gridflow/gridflow/pkg/otelhelper"
	"github.com/gridflow/gridflow/pkg/providers"
	"github.com/gridflow/gridflow/pkg/rows"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "gridflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute automation rules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "providers-config",
				Usage:   "Path to the providers YAML configuration",
				Value:   "./providers.yaml",
				Sources: cli.EnvVars("PROVIDERS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "rebalance-schedule",
				Usage:   "Cron schedule for row position rebalancing (empty disables it)",
				Value:   "0 4 * * *",
				Sources: cli.EnvVars("REBALANCE_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("gridflow-worker").With("worker_id", workerID)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing GridFlow Worker")

			persistence, err := cmd.NewPersistence(ctx, command.String("database-url"), logger)
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "gridflow-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			providerConfig := config.LoadProviderConfigOrDefault(command.String("providers-config"))
			registry := providers.NewRegistry(providerConfig)
			engine := automation.NewEngine(registry, logger)

			worker := dispatcher.NewWorker(workerID, persistence, engine, eventBus, logger)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "gridflow-worker")
				if err != nil {
					return err
				}

				worker = worker.WithTracer(tracer)
			}

			if schedule := command.String("rebalance-schedule"); schedule != "" {
				rowService := rows.NewService(persistence, logger)

				scheduler, err := rowService.ScheduleRebalancing(ctx, schedule)
				if err != nil {
					return err
				}

				defer scheduler.Stop()
			}

			err = worker.Start(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
