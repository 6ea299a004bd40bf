package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridflow/gridflow/pkg/broadcast"
	"github.com/gridflow/gridflow/pkg/cmd"
	"github.com/gridflow/gridflow/pkg/log"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort   = 9090
	defaultWSPort = 9091
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "gridflow-api",
		Usage:                 "Manage sheets, rows and automation rules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the REST API on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "ws-port",
				Usage:   "Port to run the websocket listener on",
				Value:   defaultWSPort,
				Sources: cli.EnvVars("WS_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "providers-config",
				Usage:   "Path to the providers YAML configuration for the embedded worker",
				Value:   "./providers.yaml",
				Sources: cli.EnvVars("PROVIDERS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL enabling cross-instance broadcast relay",
				Sources: cli.EnvVars("REDIS_URL"),
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

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing GridFlow API")

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

			busType := command.String("event-bus")

			eventBus, err := cmd.NewEventBus(busType, "gridflow-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			rooms := broadcast.NewRoomManager(logger)
			broadcaster, err := newBroadcaster(ctx, command.String("redis-url"), rooms, logger)
			if err != nil {
				return err
			}

			api := NewAPI(logger, persistence, eventBus, broadcaster, rooms)

			// The gochannel bus is in-process only, so the consumer must run
			// in this binary or enqueued automations would never execute.
			if busType == "gochannel" || busType == "" {
				worker := api.InProcessWorker(command.String("providers-config"))

				go func() {
					err := worker.Start(ctx)
					if err != nil && !errors.Is(err, context.Canceled) {
						logger.ErrorContext(ctx, "Embedded worker stopped with error", "error", err)
					}
				}()
			}

			err = api.Start(ctx, int(command.Int("port")), int(command.Int("ws-port")))
			if err != nil {
				logger.ErrorContext(ctx, "API server stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

// newBroadcaster wires local-only rooms, or a Redis relay on top of them when
// a Redis URL is configured.
func newBroadcaster(ctx context.Context, redisURL string, rooms *broadcast.RoomManager, logger *slog.Logger) (broadcast.Broadcaster, error) {
	if redisURL == "" {
		return rooms, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	relay := broadcast.NewRedisRelay(redis.NewClient(opts), rooms, logger)

	go func() {
		err := relay.Listen(ctx)
		if err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "Broadcast relay stopped", "error", err)
		}
	}()

	return relay, nil
}
