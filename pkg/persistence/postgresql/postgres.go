// Package postgresql provides PostgreSQL persistence for save slots.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db       *sql.DB
	logger   *slog.Logger
	saveRepo *SaveRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql")

	// Initialize components
	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:       database,
		logger:   logger,
		saveRepo: NewSaveRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// SaveRepository returns the repository backing the slot operations.
func (p *Persistence) SaveRepository() *SaveRepository {
	return p.saveRepo
}

// Save creates or replaces a slot.
func (p *Persistence) Save(ctx context.Context, snapshot *models.Snapshot) error {
	return p.saveRepo.Save(ctx, snapshot)
}

// Load returns the snapshot stored in slot.
func (p *Persistence) Load(ctx context.Context, graphID, slot string) (*models.Snapshot, error) {
	return p.saveRepo.Load(ctx, graphID, slot)
}

// List returns the snapshots of a graph, newest first.
func (p *Persistence) List(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	return p.saveRepo.List(ctx, graphID)
}

// Delete removes a slot.
func (p *Persistence) Delete(ctx context.Context, graphID, slot string) error {
	return p.saveRepo.Delete(ctx, graphID, slot)
}
