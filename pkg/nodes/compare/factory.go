package compare

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// CompareNodeFactory creates CompareNode instances.
type CompareNodeFactory struct{}

// Create creates a new CompareNode instance.
func (f *CompareNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewCompareNode(id, config)
}

// ID returns the factory ID.
func (f *CompareNodeFactory) ID() string {
	return TypeCompare
}

// Name returns the factory name.
func (f *CompareNodeFactory) Name() string {
	return "Compare"
}

// Description returns the factory description.
func (f *CompareNodeFactory) Description() string {
	return "Compares two values and serves the boolean result, typically into an if node's condition port."
}

// Schema returns the JSON schema for Compare node configuration.
func (f *CompareNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operator": map[string]any{
				"type":    "string",
				"enum":    Operators,
				"default": "==",
			},
			"a": map[string]any{
				"description": "Left operand used when the a port is not connected",
			},
			"b": map[string]any{
				"description": "Right operand used when the b port is not connected",
			},
		},
		"examples": []map[string]any{
			{"operator": ">=", "b": 10},
		},
	}
}

// NewCompareNodeFactory creates a new factory instance.
func NewCompareNodeFactory() protocol.NodeFactory {
	return &CompareNodeFactory{}
}
