package transform

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

// Create creates a new TransformNode instance.
func (f *TransformNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewTransformNode(id, config)
}

// ID returns the factory ID.
func (f *TransformNodeFactory) ID() string {
	return TypeTransform
}

// Name returns the factory name.
func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *TransformNodeFactory) Description() string {
	return "Computes a value from story variables with a Go template and serves it on the result port"
}

// Schema returns the JSON schema for Transform node configuration.
func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Go template expression. Has access to .vars, .run and .env.",
				"examples": []string{
					`{{.vars.first_name}} {{.vars.last_name}}`,
					`{{len .vars.inventory}}`,
					`{"route": "{{.vars.route}}", "day": {{.vars.day}}}`,
				},
			},
		},
		"required": []string{"expression"},
		"examples": []map[string]any{
			{
				"expression": `{{and .vars.has_key .vars.met_guard}}`,
			},
		},
	}
}

// NewTransformNodeFactory creates a new factory instance.
func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}
