package group

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// GroupNodeFactory creates GroupNode instances.
type GroupNodeFactory struct{}

// Create creates a new GroupNode instance.
func (f *GroupNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewGroupNode(id, config)
}

// ID returns the factory ID.
func (f *GroupNodeFactory) ID() string {
	return TypeGroup
}

// Name returns the factory name.
func (f *GroupNodeFactory) Name() string {
	return "Group"
}

// Description returns the factory description.
func (f *GroupNodeFactory) Description() string {
	return "Runs every chain on its calls port at the same time and waits for all of them."
}

// Schema returns the JSON schema for Group node configuration.
func (f *GroupNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// NewGroupNodeFactory creates a new factory instance.
func NewGroupNodeFactory() protocol.NodeFactory {
	return &GroupNodeFactory{}
}
