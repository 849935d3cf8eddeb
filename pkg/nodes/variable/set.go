// Package variable provides nodes that read and write story variables.
package variable

import (
	"context"
	"fmt"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
	"github.com/dukex/storyflow/pkg/template"
	"github.com/dukex/storyflow/pkg/variables"
)

const (
	TypeSetVariable = "set_variable"

	InputPortValue = "value"

	OperationSet = "set"
	OperationAdd = "add"
)

// SetVariableNode writes a value into a variable slot. It is not skippable:
// jumping past it still applies the write.
type SetVariableNode struct {
	id        string
	variable  string
	value     any
	operation string
}

// NewSetVariableNode creates a set_variable node.
func NewSetVariableNode(id string, config map[string]any) (*SetVariableNode, error) {
	name, err := nodes.RequiredString(config, "variable")
	if err != nil {
		return nil, err
	}

	operation := OperationSet
	if op, ok := nodes.String(config, "operation"); ok {
		operation = op
	}

	if operation != OperationSet && operation != OperationAdd {
		return nil, fmt.Errorf("invalid operation '%s' (must be set or add)", operation)
	}

	return &SetVariableNode{
		id:        id,
		variable:  name,
		value:     config["value"],
		operation: operation,
	}, nil
}

func (n *SetVariableNode) ID() string {
	return n.id
}

func (n *SetVariableNode) Type() string {
	return TypeSetVariable
}

func (n *SetVariableNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return append(inputs, models.NewInputPort(n.id, InputPortValue, "Value to write, overrides the configured one"))
}

func (n *SetVariableNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return outputs
}

// Execute applies the write.
func (n *SetVariableNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	return n.apply(ctx, ectx)
}

func (n *SetVariableNode) CanSkip() bool {
	return false
}

// SkipWait applies the write without playing the node.
func (n *SetVariableNode) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	err := n.apply(ctx, ectx)
	if err != nil {
		ectx.NodeLogger(n).ErrorContext(ctx, "Failed to apply skipped write", "error", err)
	}
}

func (n *SetVariableNode) apply(ctx context.Context, ectx *models.ExecutionContext) error {
	value, err := n.resolve(ectx)
	if err != nil {
		return err
	}

	if n.operation == OperationAdd {
		value, err = n.add(ectx, value)
		if err != nil {
			return err
		}
	}

	err = ectx.Variables.Set(n.variable, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", n.variable, err)
	}

	ectx.NodeLogger(n).DebugContext(ctx, "Variable set", "variable", n.variable, "value", value)

	return nil
}

// resolve prefers a connected value port over the configured value.
func (n *SetVariableNode) resolve(ectx *models.ExecutionContext) (any, error) {
	if value, ok := ectx.InputValue(n.id, InputPortValue); ok {
		return value, nil
	}

	text, ok := n.value.(string)
	if !ok || !template.NeedsTemplating(text) {
		return n.value, nil
	}

	if slot, ok := ectx.Variables.Slot(n.variable); ok && slot.Type == variables.TypeString {
		return template.TextWithContext(text, ectx)
	}

	value, err := template.RenderWithContext(text, ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to render value: %w", err)
	}

	return value, nil
}

func (n *SetVariableNode) add(ectx *models.ExecutionContext, delta any) (any, error) {
	current, err := ectx.Variables.Get(n.variable)
	if err != nil {
		return nil, err
	}

	a, okA := number(current)
	b, okB := number(delta)

	if !okA || !okB {
		return nil, fmt.Errorf("cannot add %T to %T in %s", delta, current, n.variable)
	}

	return a + b, nil
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
