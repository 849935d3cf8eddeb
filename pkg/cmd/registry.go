// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/registry"
)

// NewRegistry creates a registry with the built-in node types and the node
// plugins found under pluginsPath.
func NewRegistry(ctx context.Context, log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes()

	if pluginsPath == "" {
		return reg, nil
	}

	err := reg.LoadNodePlugins(pluginsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load node plugins: %w", err)
	}

	log.InfoContext(ctx, "Registry ready", "node_types", reg.NodeTypes())

	return reg, nil
}
