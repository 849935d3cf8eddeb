// Package persistence provides the storage abstraction for save slots.
package persistence

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
)

// Persistence stores snapshots keyed by graph id and slot name.
type Persistence interface {
	// Save creates or replaces the snapshot in its slot.
	Save(ctx context.Context, snapshot *models.Snapshot) error
	// Load returns the snapshot in slot, or ErrSaveNotFound.
	Load(ctx context.Context, graphID, slot string) (*models.Snapshot, error)
	// List returns the snapshots of a graph, newest first. An empty graphID lists every graph.
	List(ctx context.Context, graphID string) ([]*models.Snapshot, error)
	// Delete removes a slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, graphID, slot string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
