// Package main provides the GridFlow API server implementation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gridflow/gridflow/pkg/automation"
	"github.com/gridflow/gridflow/pkg/broadcast"
	"github.com/gridflow/gridflow/pkg/config"
	"github.com/gridflow/gridflow/pkg/dispatcher"
	"github.com/gridflow/gridflow/pkg/eventbus"
	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/providers"
	"github.com/gridflow/gridflow/pkg/rows"
	"github.com/gridflow/gridflow/pkg/rules"
	"github.com/gridflow/gridflow/pkg/sheets"
	"github.com/gridflow/gridflow/pkg/web"
)

const wsShutdownTimeout = 5 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	broadcaster broadcast.Broadcaster
	rooms       *broadcast.RoomManager
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	broadcaster broadcast.Broadcaster,
	rooms *broadcast.RoomManager,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		eventBus:    eventBus,
		broadcaster: broadcaster,
		rooms:       rooms,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	sheetService := sheets.NewService(a.persistence, a.logger)
	rowService := rows.NewService(a.persistence, a.logger)
	ruleService := rules.NewService(a.persistence, a.logger)
	importer := sheets.NewImporter(sheetService, rowService)

	jobDispatcher := dispatcher.NewDispatcher(a.eventBus, a.logger).
		WithSuccessCheck(a.persistence.ExecutionLog())
	automationService := automation.NewService(rules.NewMatcher(a.persistence, a.logger), jobDispatcher, a.logger)

	handlers := web.NewAPIHandlers(
		sheetService, importer, rowService, ruleService, automationService,
		a.broadcaster, a.persistence, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("GridFlow API")
	})

	s := app.Group("/sheets")
	s.Get("/", handlers.ListSheets)
	s.Post("/", handlers.CreateSheet)
	s.Get("/:id", handlers.GetSheet)
	s.Patch("/:id", handlers.UpdateSheet)
	s.Delete("/:id", handlers.DeleteSheet)
	s.Post("/:id/import", handlers.ImportCSV)
	s.Post("/:id/rebalance", handlers.RebalanceSheet)

	s.Get("/:id/rows", handlers.ListRows)
	s.Post("/:id/rows", handlers.CreateRow)
	s.Get("/:id/rules", handlers.ListRules)
	s.Post("/:id/rules", handlers.CreateRule)

	r := app.Group("/rows")
	r.Get("/:rowId", handlers.GetRow)
	r.Patch("/:rowId", handlers.UpdateRow)
	r.Put("/:rowId/position", handlers.RepositionRow)
	r.Delete("/:rowId", handlers.DeleteRow)

	ru := app.Group("/rules")
	ru.Get("/:ruleId", handlers.GetRule)
	ru.Patch("/:ruleId", handlers.UpdateRule)
	ru.Delete("/:ruleId", handlers.DeleteRule)
	ru.Get("/:ruleId/logs", handlers.GetRuleLogs)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// InProcessWorker builds a worker consuming this process's own event bus.
// The gochannel bus never leaves the process, so automations enqueued by the
// API must also execute here; without it every matched rule would sit in the
// channel unconsumed.
func (a *API) InProcessWorker(providersConfigPath string) *dispatcher.Worker {
	providerConfig := config.LoadProviderConfigOrDefault(providersConfigPath)
	registry := providers.NewRegistry(providerConfig)
	engine := automation.NewEngine(registry, a.logger)

	return dispatcher.NewWorker("api-embedded", a.persistence, engine, a.eventBus, a.logger)
}

// WebsocketServer builds the live-update listener. It runs on its own
// net/http server because websocket upgrades need connection hijacking,
// which fiber's fasthttp transport does not expose.
func (a *API) WebsocketServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /ws/sheets/{sheet_id}", broadcast.NewHandler(a.rooms, a.logger))

	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start serves the REST API and the websocket listener until the context is
// cancelled, then shuts both down.
func (a *API) Start(ctx context.Context, port, wsPort int) error {
	app := a.App()
	wsServer := a.WebsocketServer(wsPort)

	errCh := make(chan error, 2)

	go func() {
		a.logger.InfoContext(ctx, "REST API listening", "port", port)
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	go func() {
		a.logger.InfoContext(ctx, "Websocket listener listening", "port", wsPort)

		err := wsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), wsShutdownTimeout)
	defer cancel()

	err := wsServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("Failed to shut down websocket listener", "error", err)
	}

	return app.Shutdown()
}
