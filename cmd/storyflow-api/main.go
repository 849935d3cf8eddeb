package main

import (
	"context"
	"os"

	"github.com/dukex/storyflow/pkg/cmd"
	"github.com/dukex/storyflow/pkg/log"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	app := &cli.Command{
		Name:                  "storyflow-api",
		Usage:                 "Serve story graphs over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("STORYFLOW_PORT"),
			},
			&cli.StringFlag{
				Name:    "save-store-url",
				Usage:   "Save store URL (file://path, redis://..., postgres://...)",
				Value:   "file://./saves",
				Sources: cli.EnvVars("SAVE_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "graphs-path",
				Usage:   "Directory of graph documents registered at startup",
				Sources: cli.EnvVars("GRAPHS_PATH"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Publish run events on this bus (gochannel, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.DurationFlag{
				Name:  "async-timeout",
				Usage: "Give up on a node that waits longer than this (0 waits forever)",
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP",
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

			logger.InfoContext(ctx, "Initializing Storyflow API")

			registry, err := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("save-store-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close save store", "error", err)
				}
			}()

			opts := []services.RunsOption{
				services.WithAsyncTimeout(command.Duration("async-timeout")),
				services.WithTracer(cmd.NewTracer(ctx, command.Bool("otel-enabled"), "storyflow-api", logger)),
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				opts = append(opts, services.WithEventPublisher(eventBus))
			}

			api := NewAPI(
				logger,
				registry,
				savegame.NewService(store, logger),
				opts...,
			)

			defer func() {
				if err := api.Shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to stop runs", "error", err)
				}
			}()

			if path := command.String("graphs-path"); path != "" {
				count, err := api.LoadGraphs(ctx, path)
				if err != nil {
					return err
				}

				logger.InfoContext(ctx, "Graph documents registered", "count", count)
			}

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
