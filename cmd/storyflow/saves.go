package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dukex/storyflow/pkg/cmd"
	"github.com/dukex/storyflow/pkg/log"
	"github.com/dukex/storyflow/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

func NewSavesCommand() *cli.Command {
	return &cli.Command{
		Name:  "saves",
		Usage: "Manage save slots",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List save slots, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "graph",
						Usage: "Only list the slots of this graph",
					},
				},
				Action: withStore(func(ctx context.Context, command *cli.Command, store persistence.Persistence) error {
					snapshots, err := store.List(ctx, command.String("graph"))
					if err != nil {
						return fmt.Errorf("failed to list saves: %w", err)
					}

					w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "GRAPH\tSLOT\tNODE\tSAVED AT")

					for _, snapshot := range snapshots {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
							snapshot.GraphID, snapshot.Slot, snapshot.NodeID, snapshot.SavedAt.Format(time.RFC3339))
					}

					return w.Flush()
				}),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a save slot",
				ArgsUsage: "<graph> <slot>",
				Action: withStore(func(ctx context.Context, command *cli.Command, store persistence.Persistence) error {
					graphID, slot := command.Args().Get(0), command.Args().Get(1)
					if graphID == "" || slot == "" {
						return errors.New("graph and slot are required")
					}

					err := store.Delete(ctx, graphID, slot)
					if err != nil {
						return fmt.Errorf("failed to delete %s/%s: %w", graphID, slot, err)
					}

					fmt.Fprintf(command.Root().Writer, "deleted %s/%s\n", graphID, slot)

					return nil
				}),
			},
		},
	}
}

func withStore(action func(ctx context.Context, command *cli.Command, store persistence.Persistence) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		logger := log.WithModule("saves")

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

		return action(ctx, command, store)
	}
}
