package variable

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// SetVariableNodeFactory creates SetVariableNode instances.
type SetVariableNodeFactory struct{}

// Create creates a new SetVariableNode instance.
func (f *SetVariableNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewSetVariableNode(id, config)
}

// ID returns the factory ID.
func (f *SetVariableNodeFactory) ID() string {
	return TypeSetVariable
}

// Name returns the factory name.
func (f *SetVariableNodeFactory) Name() string {
	return "Set Variable"
}

// Description returns the factory description.
func (f *SetVariableNodeFactory) Description() string {
	return "Writes a value into a story variable. The write is applied even when a jump skips the node."
}

// Schema returns the JSON schema for Set Variable node configuration.
func (f *SetVariableNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Name of the declared variable to write",
			},
			"value": map[string]any{
				"description": "Value to write. Strings support templating. A connection on the value port wins.",
				"examples":    []any{true, 3, "{{.vars.player_name}}"},
			},
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{OperationSet, OperationAdd},
				"default":     OperationSet,
				"description": "set replaces the value, add increments a numeric variable",
			},
		},
		"required": []string{"variable"},
		"examples": []map[string]any{
			{"variable": "met_mira", "value": true},
			{"variable": "affection", "value": 2, "operation": OperationAdd},
		},
	}
}

// NewSetVariableNodeFactory creates a new factory instance.
func NewSetVariableNodeFactory() protocol.NodeFactory {
	return &SetVariableNodeFactory{}
}

// VariableNodeFactory creates VariableNode instances.
type VariableNodeFactory struct{}

// Create creates a new VariableNode instance.
func (f *VariableNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewVariableNode(id, config)
}

// ID returns the factory ID.
func (f *VariableNodeFactory) ID() string {
	return TypeVariable
}

// Name returns the factory name.
func (f *VariableNodeFactory) Name() string {
	return "Variable"
}

// Description returns the factory description.
func (f *VariableNodeFactory) Description() string {
	return "Exposes the current value of a story variable on its value port."
}

// Schema returns the JSON schema for Variable node configuration.
func (f *VariableNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Name of the declared variable to read",
			},
		},
		"required": []string{"variable"},
	}
}

// NewVariableNodeFactory creates a new factory instance.
func NewVariableNodeFactory() protocol.NodeFactory {
	return &VariableNodeFactory{}
}
