package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/agentopt/pkg/optimizer"
	"github.com/dukex/agentopt/pkg/persistence"
	"github.com/dukex/agentopt/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	optimizer   *optimizer.Optimizer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	opt *optimizer.Optimizer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		optimizer:   opt,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.optimizer, a.persistence, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Agentopt API")
	})

	o := app.Group("/optimizations")
	o.Post("/", handlers.CreateOptimization)
	o.Post("/batch", handlers.CreateBatchOptimization)
	o.Get("/", handlers.GetOptimizations)
	o.Get("/:id", handlers.GetOptimization)

	app.Post("/comparisons", handlers.CreateComparison)

	c := app.Group("/agent-configs")
	c.Get("/", handlers.GetAgentConfigs)
	c.Post("/", handlers.SaveAgentConfig)
	c.Get("/:id", handlers.GetAgentConfig)
	c.Delete("/:id", handlers.DeleteAgentConfig)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
