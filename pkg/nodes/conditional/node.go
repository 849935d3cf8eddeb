// Package conditional provides the if node that picks one of two branch chains.
package conditional

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/template"
)

const (
	TypeIf = "if"

	OutputPortTrue  = "true"
	OutputPortFalse = "false"
	InputPortCond   = "condition"
)

// ErrNoCondition is returned when neither a connection nor a template provides the condition.
var ErrNoCondition = errors.New("no condition connected or configured")

// IfNode evaluates a condition and runs the chains attached to the
// matching branch port, joining them before the main line advances.
type IfNode struct {
	id        string
	condition string
}

// NewIfNode creates a new conditional branching node.
func NewIfNode(id string, config map[string]any) (*IfNode, error) {
	condition, _ := config["condition"].(string)

	return &IfNode{
		id:        id,
		condition: condition,
	}, nil
}

// ID returns the node ID.
func (n *IfNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *IfNode) Type() string {
	return TypeIf
}

// BranchPorts returns the ports whose chains this node owns.
func (n *IfNode) BranchPorts() []string {
	return []string{OutputPortTrue, OutputPortFalse}
}

// Execute evaluates the condition and runs the selected chain.
func (n *IfNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	result, err := n.Evaluate(ectx)
	if err != nil {
		return err
	}

	port := OutputPortFalse
	if result {
		port = OutputPortTrue
	}

	ectx.NodeLogger(n).DebugContext(ctx, "Condition evaluated", "result", result, "port", port)

	return ectx.Branches.Run(ctx, ectx, n.id, port)
}

// Evaluate resolves the condition. A connected condition port wins over the
// configured template.
func (n *IfNode) Evaluate(ectx *models.ExecutionContext) (bool, error) {
	if value, ok := ectx.InputValue(n.id, InputPortCond); ok {
		return template.Truthy(value), nil
	}

	if n.condition == "" {
		return false, ErrNoCondition
	}

	result, err := template.RenderWithContext(n.condition, ectx)
	if err != nil {
		return false, fmt.Errorf("condition evaluation failed: %w", err)
	}

	return template.Truthy(result), nil
}

// SkipWait cancels chains still running from an earlier invocation.
func (n *IfNode) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	if ectx != nil && ectx.Branches != nil {
		ectx.Branches.Cancel(n.id)
	}
}

// InputPorts returns the input ports for the node.
func (n *IfNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return append(inputs, models.NewInputPort(n.id, InputPortCond, "Boolean value deciding the branch"))
}

// OutputPorts returns the output ports for the node.
func (n *IfNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return append(outputs,
		models.NewBranchPort(n.id, OutputPortTrue, "Chains run when the condition holds"),
		models.NewBranchPort(n.id, OutputPortFalse, "Chains run when the condition does not hold"),
	)
}
