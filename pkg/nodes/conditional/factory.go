package conditional

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// IfNodeFactory creates IfNode instances.
type IfNodeFactory struct{}

// Create creates a new IfNode instance.
func (f *IfNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewIfNode(id, config)
}

// ID returns the factory ID.
func (f *IfNodeFactory) ID() string {
	return TypeIf
}

// Name returns the factory name.
func (f *IfNodeFactory) Name() string {
	return "If"
}

// Description returns the factory description.
func (f *IfNodeFactory) Description() string {
	return "Evaluates a condition and runs the chains on its true or false port before the story continues."
}

// Schema returns the JSON schema for If node configuration.
func (f *IfNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Condition template, used when nothing is connected to the condition port. Non-zero numbers and non-empty strings are truthy.",
				"examples": []string{
					`{{.vars.met_mira}}`,
					`{{gt .vars.affection 10}}`,
					`{{and .vars.has_key (not .vars.door_open)}}`,
					`{{eq .vars.route "library"}}`,
				},
			},
		},
		"examples": []map[string]any{
			{
				"condition": `{{ge .vars.trust 3}}`,
			},
			{},
		},
	}
}

// NewIfNodeFactory creates a new factory instance.
func NewIfNodeFactory() protocol.NodeFactory {
	return &IfNodeFactory{}
}
