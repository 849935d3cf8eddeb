package switchnode

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// SwitchNodeFactory creates SwitchNode instances.
type SwitchNodeFactory struct{}

// Create creates a new SwitchNode instance.
func (f *SwitchNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewSwitchNode(id, config)
}

// ID returns the factory ID.
func (f *SwitchNodeFactory) ID() string {
	return TypeSwitch
}

// Name returns the factory name.
func (f *SwitchNodeFactory) Name() string {
	return "Switch"
}

// Description returns the factory description.
func (f *SwitchNodeFactory) Description() string {
	return "Multi-way branching node that runs the chains of the case matching a value, or the default port"
}

// Schema returns the JSON schema for Switch node configuration.
func (f *SwitchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{
				"type":        "string",
				"description": "Value template, used when nothing is connected to the value port",
				"examples": []string{
					`{{.vars.route}}`,
					`{{.vars.day}}`,
				},
			},
			"cases": map[string]any{
				"type":        "array",
				"description": "Values to match in order. Plain values hang their chains from case_<index>; objects may name the port.",
				"items": map[string]any{
					"oneOf": []any{
						map[string]any{"type": []string{"string", "number", "boolean"}},
						map[string]any{
							"type": "object",
							"properties": map[string]any{
								"value": map[string]any{
									"description": "Value to match against the evaluated expression",
								},
								"output_port": map[string]any{
									"type":        "string",
									"description": "Branch port to run when this value matches",
								},
							},
							"required": []string{"value"},
						},
					},
				},
			},
		},
		"examples": []map[string]any{
			{
				"value": `{{.vars.route}}`,
				"cases": []any{"library", "garden", "rooftop"},
			},
			{
				"cases": []map[string]any{
					{"value": 0, "output_port": "accept"},
					{"value": 1, "output_port": "refuse"},
				},
			},
		},
	}
}

// NewSwitchNodeFactory creates a new factory instance.
func NewSwitchNodeFactory() protocol.NodeFactory {
	return &SwitchNodeFactory{}
}
