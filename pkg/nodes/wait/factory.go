package wait

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// WaitNodeFactory creates WaitNode instances.
type WaitNodeFactory struct{}

// Create creates a new WaitNode instance.
func (f *WaitNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewWaitNode(id, config)
}

// ID returns the factory ID.
func (f *WaitNodeFactory) ID() string {
	return TypeWait
}

// Name returns the factory name.
func (f *WaitNodeFactory) Name() string {
	return "Wait"
}

// Description returns the factory description.
func (f *WaitNodeFactory) Description() string {
	return "Holds the story for a number of seconds before moving on."
}

// Schema returns the JSON schema for Wait node configuration.
func (f *WaitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"seconds": map[string]any{
				"type":        "number",
				"minimum":     0,
				"description": "How long to wait, fractions allowed",
				"examples":    []float64{0.5, 2, 10},
			},
		},
		"required": []string{"seconds"},
	}
}

// NewWaitNodeFactory creates a new factory instance.
func NewWaitNodeFactory() protocol.NodeFactory {
	return &WaitNodeFactory{}
}
