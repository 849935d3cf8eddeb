// Package flow provides the start and exit anchors of a graph.
package flow

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
)

const (
	TypeStart = "start"
	TypeExit  = "exit"
)

// StartNode marks where authors begin a graph. It only exposes an exit port
// and is never queued.
type StartNode struct {
	id string
}

// NewStartNode creates a start anchor.
func NewStartNode(id string) *StartNode {
	return &StartNode{id: id}
}

func (n *StartNode) ID() string {
	return n.id
}

func (n *StartNode) Type() string {
	return TypeStart
}

func (n *StartNode) InputPorts() []models.InputPort {
	return nil
}

func (n *StartNode) OutputPorts() []models.OutputPort {
	return []models.OutputPort{models.NewOutputPort(n.id, models.PortExit, "First node of the story")}
}

// ExitNode ends the run it belongs to. Inside a branch chain it only ends
// the chain.
type ExitNode struct {
	id string
}

// NewExitNode creates an exit node.
func NewExitNode(id string) *ExitNode {
	return &ExitNode{id: id}
}

func (n *ExitNode) ID() string {
	return n.id
}

func (n *ExitNode) Type() string {
	return TypeExit
}

func (n *ExitNode) InputPorts() []models.InputPort {
	return []models.InputPort{models.NewInputPort(n.id, models.PortEnter, "Main-line entry")}
}

func (n *ExitNode) OutputPorts() []models.OutputPort {
	return nil
}

// Execute asks the scheduler to end the run.
func (n *ExitNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	ectx.NodeLogger(n).InfoContext(ctx, "Exit requested")

	return models.ErrExit
}
