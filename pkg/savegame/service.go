// Package savegame captures running graphs into save slots and resumes them.
package savegame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/dukex/storyflow/pkg/workflow"
)

// DefaultSlot is the slot autosave nodes write to when none is configured.
const DefaultSlot = "autosave"

// ErrNothingToSave is returned when the run has not reached a node yet.
var ErrNothingToSave = errors.New("run has no current node")

// Service saves and loads snapshots through a persistence store.
type Service struct {
	store  persistence.Persistence
	logger *slog.Logger
}

// NewService creates a save service.
func NewService(store persistence.Persistence, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		logger: logger.With("module", "savegame"),
	}
}

// Capture builds a snapshot of the executor's run without storing it.
func Capture(slot string, executor *workflow.Executor) (*models.Snapshot, error) {
	graph := executor.Graph()
	if graph == nil {
		return nil, workflow.ErrNotRunning
	}

	nodeID := executor.Current()
	if nodeID == "" {
		return nil, ErrNothingToSave
	}

	states := make(map[string]any)

	for _, node := range graph.Nodes() {
		stateful, ok := node.(models.Stateful)
		if !ok {
			continue
		}

		states[node.ID()] = stateful.GetStateForSave()
	}

	return &models.Snapshot{
		Slot:       slot,
		GraphID:    graph.ID(),
		RunID:      executor.RunID(),
		NodeID:     nodeID,
		Variables:  graph.Variables().Snapshot(),
		NodeStates: states,
		SavedAt:    time.Now().UTC(),
	}, nil
}

// Save stores the current node, the variables and the state of every
// stateful node of the executor's run into slot.
func (s *Service) Save(ctx context.Context, slot string, executor *workflow.Executor) (*models.Snapshot, error) {
	if slot == "" {
		slot = DefaultSlot
	}

	snapshot, err := Capture(slot, executor)
	if err != nil {
		return nil, err
	}

	err = s.store.Save(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to save slot %s: %w", slot, err)
	}

	s.logger.InfoContext(ctx, "Saved",
		"slot", slot,
		"graph_id", snapshot.GraphID,
		"run_id", snapshot.RunID,
		"node_id", snapshot.NodeID,
	)

	return snapshot, nil
}

// Load reads slot for graph and resumes it on executor at the saved node.
// A run of graph already in progress jumps; otherwise a new run starts.
// Stateful nodes are reset then given their saved state, and the variables
// are restored after the skipped prefix has committed its effects.
func (s *Service) Load(ctx context.Context, slot string, executor *workflow.Executor, graph *models.Graph) (*models.Snapshot, error) {
	if slot == "" {
		slot = DefaultSlot
	}

	snapshot, err := s.store.Load(ctx, graph.ID(), slot)
	if err != nil {
		return nil, err
	}

	restore := workflow.BeforeResume(func(ctx context.Context, _ *models.ExecutionContext) {
		s.restore(ctx, graph, snapshot)
	})

	if executor.Graph() == graph && isActive(executor.State()) {
		err = executor.JumpToNode(ctx, snapshot.NodeID, restore)
	} else {
		err = executor.ExecuteFrom(ctx, graph, snapshot.NodeID, restore)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resume slot %s at %s: %w", slot, snapshot.NodeID, err)
	}

	s.logger.InfoContext(ctx, "Loaded",
		"slot", slot,
		"graph_id", graph.ID(),
		"run_id", executor.RunID(),
		"node_id", snapshot.NodeID,
	)

	return snapshot, nil
}

// HealthCheck checks the health of the save store.
func (s *Service) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Save store not initialized", false
	}

	err := s.store.HealthCheck(ctx)
	if err != nil {
		return "Save store is unhealthy: " + err.Error(), false
	}

	return "Save store is healthy", true
}

// List returns the slots of graphID, newest first.
func (s *Service) List(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	return s.store.List(ctx, graphID)
}

// Delete removes a slot.
func (s *Service) Delete(ctx context.Context, graphID, slot string) error {
	return s.store.Delete(ctx, graphID, slot)
}

func (s *Service) restore(ctx context.Context, graph *models.Graph, snapshot *models.Snapshot) {
	for _, node := range graph.Nodes() {
		stateful, ok := node.(models.Stateful)
		if !ok {
			continue
		}

		stateful.ResetSaveBehavior()

		state, ok := snapshot.NodeStates[node.ID()]
		if !ok {
			continue
		}

		err := stateful.SetStateFromSave(state)
		if err != nil {
			s.logger.WarnContext(ctx, "Node state not restored", "node_id", node.ID(), "error", err)
		}
	}

	graph.Variables().Restore(snapshot.Variables)
}

func isActive(state workflow.State) bool {
	return state != workflow.StateIdle && state != workflow.StateEnded
}
