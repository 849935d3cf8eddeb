package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/storyflow/pkg/log"
	"github.com/dukex/storyflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func NewLinearizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "linearize",
		Aliases:   []string{"lin"},
		Usage:     "Print the main sequence of a graph document",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("linearize")

			_, graph, err := loadGraph(ctx, command, logger)
			if err != nil {
				return err
			}

			linearization := workflow.NewLinearizer(logger).Linearize(graph)
			w := command.Root().Writer

			fmt.Fprintf(w, "Graph: %s (%s)\n", graph.Name(), graph.ID())
			fmt.Fprintln(w, "Main sequence:")

			for i, node := range linearization.Sequence {
				fmt.Fprintf(w, "  %2d. %s [%s]\n", i+1, node.ID(), node.Type())
			}

			if len(linearization.Owned) > 0 {
				fmt.Fprintf(w, "Branch nodes: %s\n", strings.Join(linearization.Owned, ", "))
			}

			if len(linearization.Dropped) > 0 {
				fmt.Fprintf(w, "Dropped (cycle): %s\n", strings.Join(linearization.Dropped, ", "))
			}

			return nil
		},
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check that a graph document builds",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			doc, graph, err := loadGraph(ctx, command, log.WithModule("validate"))
			if err != nil {
				return err
			}

			fmt.Fprintf(command.Root().Writer, "%s: ok (%d nodes, %d connections, %d variables)\n",
				doc.ID, len(graph.Nodes()), len(graph.Connections()), len(graph.Variables().Names()))

			return nil
		},
	}
}
