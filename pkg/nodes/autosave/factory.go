package autosave

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// AutosaveNodeFactory creates AutosaveNode instances.
type AutosaveNodeFactory struct{}

// Create creates a new AutosaveNode instance.
func (f *AutosaveNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewAutosaveNode(id, config)
}

// ID returns the factory ID.
func (f *AutosaveNodeFactory) ID() string {
	return TypeAutosave
}

// Name returns the factory name.
func (f *AutosaveNodeFactory) Name() string {
	return "Autosave"
}

// Description returns the factory description.
func (f *AutosaveNodeFactory) Description() string {
	return "Saves the story into a slot and continues once the save is written."
}

// Schema returns the JSON schema for Autosave node configuration.
func (f *AutosaveNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slot": map[string]any{
				"type":        "string",
				"default":     DefaultSlot,
				"pattern":     "^[A-Za-z0-9_-]+$",
				"description": "Save slot name",
			},
		},
	}
}

// NewAutosaveNodeFactory creates a new factory instance.
func NewAutosaveNodeFactory() protocol.NodeFactory {
	return &AutosaveNodeFactory{}
}
