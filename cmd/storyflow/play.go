package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dukex/storyflow/pkg/cmd"
	"github.com/dukex/storyflow/pkg/events"
	"github.com/dukex/storyflow/pkg/log"
	"github.com/dukex/storyflow/pkg/presenter"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func NewPlayCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Aliases:   []string{"p"},
		Usage:     "Play a graph document in the terminal",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from-node",
				Usage: "Start at this main-sequence node",
			},
			&cli.StringFlag{
				Name:  "load-slot",
				Usage: "Resume from this save slot",
			},
			&cli.BoolFlag{
				Name:  "auto-advance",
				Usage: "Show dialogue lines without waiting for Enter",
			},
			&cli.DurationFlag{
				Name:  "async-timeout",
				Usage: "Give up on a node that waits longer than this (0 waits forever)",
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
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := log.WithModule("play")

			_, graph, err := loadGraph(ctx, command, logger)
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
			}

			saves := savegame.NewService(store, logger)
			saver := savegame.NewSaver(saves)
			ended := make(chan *events.RunEnded, 1)

			opts := []workflow.Option{
				workflow.WithLogger(logger),
				workflow.WithPresenter(newTerminal(command)),
				workflow.WithSaver(saver),
				workflow.WithTracer(cmd.NewTracer(ctx, command.Bool("otel-enabled"), "storyflow", logger)),
				workflow.WithAsyncTimeout(command.Duration("async-timeout")),
				workflow.WithObserver(workflow.ObserverFunc(func(_ context.Context, event events.Event) {
					if end, ok := event.(*events.RunEnded); ok {
						ended <- end
					}
				})),
			}

			if eventBus != nil {
				opts = append(opts, workflow.WithObserver(workflow.NewBusObserver(eventBus, logger)))
			}

			executor := workflow.NewExecutor(opts...)
			saver.Bind(executor)

			runCtx := context.WithoutCancel(ctx)

			switch {
			case command.String("load-slot") != "":
				_, err = saves.Load(runCtx, command.String("load-slot"), executor, graph)
			case command.String("from-node") != "":
				err = executor.ExecuteFrom(runCtx, graph, command.String("from-node"))
			default:
				err = executor.Execute(runCtx, graph)
			}

			if err != nil {
				return err
			}

			var end *events.RunEnded

			select {
			case end = <-ended:
			case <-ctx.Done():
				_ = executor.Stop()
				end = <-ended
			}

			fmt.Fprintf(command.Root().Writer, "-- %s after %d nodes --\n", end.Reason, end.NodesExecuted)

			return nil
		},
	}
}

func newTerminal(command *cli.Command) *presenter.Terminal {
	var opts []presenter.TerminalOption
	if command.Bool("auto-advance") {
		opts = append(opts, presenter.WithAutoAdvance())
	}

	return presenter.NewTerminal(command.Root().Reader, command.Root().Writer, opts...)
}
