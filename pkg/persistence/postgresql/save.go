package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
)

// SaveRepository handles save slot database operations.
type SaveRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSaveRepository creates a new save repository.
func NewSaveRepository(db *sql.DB, logger *slog.Logger) *SaveRepository {
	return &SaveRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Save upserts a snapshot into its slot.
func (r *SaveRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	err := persistence.ValidateSnapshot(snapshot)
	if err != nil {
		return err
	}

	persistence.Stamp(snapshot)

	variablesJSON, err := json.Marshal(orEmpty(snapshot.Variables))
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	statesJSON, err := json.Marshal(orEmpty(snapshot.NodeStates))
	if err != nil {
		return fmt.Errorf("failed to marshal node states: %w", err)
	}

	query := `
		INSERT INTO save_slots (graph_id, slot, run_id, node_id, variables, node_states, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (graph_id, slot) DO UPDATE SET
			run_id = EXCLUDED.run_id
		  , node_id = EXCLUDED.node_id
		  , variables = EXCLUDED.variables
		  , node_states = EXCLUDED.node_states
		  , saved_at = EXCLUDED.saved_at
	`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.GraphID,
		snapshot.Slot,
		snapshot.RunID,
		snapshot.NodeID,
		variablesJSON,
		statesJSON,
		snapshot.SavedAt,
	)
	if err != nil {
		return persistence.NewSaveError("Save", snapshot.GraphID, snapshot.Slot, err)
	}

	return nil
}

// Load returns the snapshot in slot.
func (r *SaveRepository) Load(ctx context.Context, graphID, slot string) (*models.Snapshot, error) {
	query := `
		SELECT
			graph_id
		  , slot
		  , run_id
		  , node_id
		  , variables
		  , node_states
		  , saved_at
		FROM save_slots
		WHERE graph_id = $1 AND slot = $2
	`

	snapshot, err := r.scanSnapshot(r.db.QueryRowContext(ctx, query, graphID, slot))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSaveError("Load", graphID, slot, persistence.ErrSaveNotFound)
		}

		return nil, persistence.NewSaveError("Load", graphID, slot, err)
	}

	return snapshot, nil
}

// List returns the snapshots of graphID, every graph when empty, newest first.
func (r *SaveRepository) List(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	query := `
		SELECT
			graph_id
		  , slot
		  , run_id
		  , node_id
		  , variables
		  , node_states
		  , saved_at
		FROM save_slots
		WHERE $1::text = '' OR graph_id = $1
		ORDER BY saved_at DESC, graph_id, slot
	`

	rows, err := r.db.QueryContext(ctx, query, graphID)
	if err != nil {
		return nil, persistence.NewSaveError("List", graphID, "", err)
	}

	defer func(ctx context.Context, r *SaveRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	snapshots := make([]*models.Snapshot, 0)

	for rows.Next() {
		snapshot, err := r.scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// Delete removes a slot.
func (r *SaveRepository) Delete(ctx context.Context, graphID, slot string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM save_slots WHERE graph_id = $1 AND slot = $2", graphID, slot)
	if err != nil {
		return persistence.NewSaveError("Delete", graphID, slot, err)
	}

	return nil
}

func (r *SaveRepository) scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		snapshot      models.Snapshot
		runID         sql.NullString
		variablesJSON []byte
		statesJSON    []byte
	)

	err := row.Scan(
		&snapshot.GraphID,
		&snapshot.Slot,
		&runID,
		&snapshot.NodeID,
		&variablesJSON,
		&statesJSON,
		&snapshot.SavedAt,
	)
	if err != nil {
		return nil, err
	}

	snapshot.RunID = runID.String
	snapshot.SavedAt = snapshot.SavedAt.UTC()

	err = json.Unmarshal(variablesJSON, &snapshot.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	err = json.Unmarshal(statesJSON, &snapshot.NodeStates)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal node states: %w", err)
	}

	if len(snapshot.NodeStates) == 0 {
		snapshot.NodeStates = nil
	}

	return &snapshot, nil
}

func orEmpty(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}

	return values
}
