package web

import "github.com/dukex/storyflow/pkg/protocol"

// StartRunRequest represents the optional body for starting a run.
type StartRunRequest struct {
	FromNode string `json:"from_node,omitempty"`
}

// JumpRequest represents the request body for moving a run to a node.
type JumpRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// AdvanceRequest acknowledges a dialogue line. NodeID may be empty when a
// single prompt is pending.
type AdvanceRequest struct {
	NodeID string `json:"node_id,omitempty"`
}

// ChoiceRequest answers a choice prompt.
type ChoiceRequest struct {
	NodeID string `json:"node_id,omitempty"`
	Index  *int   `json:"index"             validate:"required,min=0"`
}

// LoadRequest represents the optional body for loading a save slot. With
// RunID set the slot is loaded into that run.
type LoadRequest struct {
	RunID string `json:"run_id,omitempty"`
}

// SlotParams are the path parameters naming a save slot.
type SlotParams struct {
	Slot string `validate:"required,max=128,excludesall=/\\"`
}

// NodeTypeResponse describes a registered node type.
type NodeTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// TransformNodeTypes lists the factories as API responses.
func TransformNodeTypes(factories []protocol.NodeFactory) []NodeTypeResponse {
	types := make([]NodeTypeResponse, 0, len(factories))

	for _, factory := range factories {
		types = append(types, NodeTypeResponse{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return types
}
