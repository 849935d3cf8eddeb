package flow

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// StartNodeFactory creates StartNode instances.
type StartNodeFactory struct{}

func (f *StartNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewStartNode(id), nil
}

func (f *StartNodeFactory) ID() string {
	return TypeStart
}

func (f *StartNodeFactory) Name() string {
	return "Start"
}

func (f *StartNodeFactory) Description() string {
	return "Entry anchor of a story graph. Connect its exit port to the first node."
}

func (f *StartNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// NewStartNodeFactory creates a new factory instance.
func NewStartNodeFactory() protocol.NodeFactory {
	return &StartNodeFactory{}
}

// ExitNodeFactory creates ExitNode instances.
type ExitNodeFactory struct{}

func (f *ExitNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewExitNode(id), nil
}

func (f *ExitNodeFactory) ID() string {
	return TypeExit
}

func (f *ExitNodeFactory) Name() string {
	return "Exit"
}

func (f *ExitNodeFactory) Description() string {
	return "Ends the run. Inside a branch chain it only ends that chain."
}

func (f *ExitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// NewExitNodeFactory creates a new factory instance.
func NewExitNodeFactory() protocol.NodeFactory {
	return &ExitNodeFactory{}
}
