// Package main provides the SUDAO contribution API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/sudao/sudao/pkg/metrics"
	"github.com/sudao/sudao/pkg/registry"
	"github.com/sudao/sudao/pkg/services"
	"github.com/sudao/sudao/pkg/web"
)

type API struct {
	logger        *slog.Logger
	contributions *services.Contributions
	catalog       *registry.Catalog
	metrics       *metrics.Observer
	validate      *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	contributions *services.Contributions,
	catalog *registry.Catalog,
	metrics *metrics.Observer,
) *API {
	return &API{
		logger:        logger,
		contributions: contributions,
		catalog:       catalog,
		metrics:       metrics,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.contributions, a.catalog, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("SUDAO API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	handlers.Register(app)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
