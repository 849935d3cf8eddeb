// Package main provides the Storyflow control API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/dukex/storyflow/pkg/document"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/services"
	"github.com/dukex/storyflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	graphs   *services.Graphs
	runs     *services.Runs
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	registry *registry.Registry,
	saves *savegame.Service,
	opts ...services.RunsOption,
) *API {
	graphs := services.NewGraphs(registry, logger)

	return &API{
		logger:   logger,
		registry: registry,
		graphs:   graphs,
		runs:     services.NewRuns(graphs, saves, logger, opts...),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadGraphs registers every .json, .yaml and .yml document found in dir.
func (a *API) LoadGraphs(ctx context.Context, dir string) (int, error) {
	var paths []string

	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, fmt.Errorf("failed to list graph documents: %w", err)
		}

		paths = append(paths, matches...)
	}

	for _, path := range paths {
		doc, err := document.Load(path)
		if err != nil {
			return 0, err
		}

		if _, err := a.graphs.Create(ctx, doc, true); err != nil {
			return 0, fmt.Errorf("failed to register %s: %w", path, err)
		}

		a.logger.InfoContext(ctx, "Graph document loaded", "path", path, "graph_id", doc.ID)
	}

	return len(paths), nil
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.graphs, a.runs, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Storyflow API")
	})

	app.Get("/nodes", handlers.GetNodeTypes)

	g := app.Group("/graphs")
	g.Get("/", handlers.GetGraphs)
	g.Post("/", handlers.CreateGraph)
	g.Get("/:id", handlers.GetGraph)
	g.Delete("/:id", handlers.DeleteGraph)
	g.Post("/:id/runs", handlers.StartRun)

	// Save slot endpoints:
	g.Get("/:id/saves", handlers.GetSaves)
	g.Post("/:id/saves/:slot/load", handlers.LoadSave)
	g.Delete("/:id/saves/:slot", handlers.DeleteSave)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/pause", handlers.PauseRun)
	r.Post("/:id/continue", handlers.ContinueRun)
	r.Post("/:id/stop", handlers.StopRun)
	r.Post("/:id/jump", handlers.JumpRun)
	r.Post("/:id/advance", handlers.AdvanceRun)
	r.Post("/:id/choices", handlers.ChooseRun)
	r.Post("/:id/saves/:slot", handlers.SaveRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

// Shutdown stops every run still in progress.
func (a *API) Shutdown(ctx context.Context) error {
	return a.runs.Shutdown(ctx)
}
