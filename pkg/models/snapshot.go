package models

import "time"

// Snapshot is the saved state of a run: where it stood, the variable
// values and the state of every stateful node.
type Snapshot struct {
	Slot       string         `json:"slot"                  validate:"required"`
	GraphID    string         `json:"graph_id"              validate:"required"`
	RunID      string         `json:"run_id,omitempty"`
	NodeID     string         `json:"node_id"               validate:"required"`
	Variables  map[string]any `json:"variables"`
	NodeStates map[string]any `json:"node_states,omitempty"`
	SavedAt    time.Time      `json:"saved_at"`
}
