// Package group provides a node that forks every chain on its calls port and joins them.
package group

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
)

const (
	TypeGroup = "group"

	OutputPortCalls = "calls"
)

// GroupNode runs all chains attached to its calls port in parallel and
// waits for every one of them before the main line advances.
type GroupNode struct {
	id string
}

// NewGroupNode creates a group node.
func NewGroupNode(id string, _ map[string]any) (*GroupNode, error) {
	return &GroupNode{id: id}, nil
}

func (n *GroupNode) ID() string {
	return n.id
}

func (n *GroupNode) Type() string {
	return TypeGroup
}

func (n *GroupNode) BranchPorts() []string {
	return []string{OutputPortCalls}
}

// Execute forks the chains and joins them.
func (n *GroupNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	return ectx.Branches.Run(ctx, ectx, n.id, OutputPortCalls)
}

// SkipWait cancels chains still running.
func (n *GroupNode) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	if ectx != nil && ectx.Branches != nil {
		ectx.Branches.Cancel(n.id)
	}
}

func (n *GroupNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

func (n *GroupNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return append(outputs, models.NewBranchPort(n.id, OutputPortCalls, "Chains run in parallel"))
}
