package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/cmd"
	"github.com/dukex/storyflow/pkg/document"
	"github.com/dukex/storyflow/pkg/models"
	cli "github.com/urfave/cli/v3"
)

var errMissingFile = errors.New("graph document path is required")

// loadGraph reads the document named by the first argument and builds it
// with the built-in nodes and the configured plugins.
func loadGraph(ctx context.Context, command *cli.Command, logger *slog.Logger) (*document.Document, *models.Graph, error) {
	path := command.Args().First()
	if path == "" {
		return nil, nil, errMissingFile
	}

	reg, err := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
	if err != nil {
		return nil, nil, err
	}

	doc, err := document.Load(path)
	if err != nil {
		return nil, nil, err
	}

	graph, err := document.Build(ctx, reg, doc, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s: %w", path, err)
	}

	return doc, graph, nil
}
