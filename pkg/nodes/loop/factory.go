package loop

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// LoopNodeFactory creates LoopNode instances.
type LoopNodeFactory struct{}

// Create creates a new LoopNode instance.
func (f *LoopNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewLoopNode(id, config)
}

// ID returns the factory ID.
func (f *LoopNodeFactory) ID() string {
	return TypeLoop
}

// Name returns the factory name.
func (f *LoopNodeFactory) Name() string {
	return "Loop"
}

// Description returns the factory description.
func (f *LoopNodeFactory) Description() string {
	return "Replays the chains on its loop port a number of times before the story continues."
}

// Schema returns the JSON schema for Loop node configuration.
func (f *LoopNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"default":     1,
				"description": "Number of iterations, used when nothing is connected to the count port",
			},
		},
	}
}

// NewLoopNodeFactory creates a new factory instance.
func NewLoopNodeFactory() protocol.NodeFactory {
	return &LoopNodeFactory{}
}
