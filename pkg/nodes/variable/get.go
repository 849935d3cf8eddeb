package variable

import (
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
)

const (
	TypeVariable = "variable"

	OutputPortValue = "value"
)

// VariableNode serves the current value of a variable on its value port.
type VariableNode struct {
	id       string
	variable string
}

// NewVariableNode creates a variable node.
func NewVariableNode(id string, config map[string]any) (*VariableNode, error) {
	name, err := nodes.RequiredString(config, "variable")
	if err != nil {
		return nil, err
	}

	return &VariableNode{id: id, variable: name}, nil
}

func (n *VariableNode) ID() string {
	return n.id
}

func (n *VariableNode) Type() string {
	return TypeVariable
}

func (n *VariableNode) InputPorts() []models.InputPort {
	return nil
}

func (n *VariableNode) OutputPorts() []models.OutputPort {
	return []models.OutputPort{models.NewOutputPort(n.id, OutputPortValue, "Current value of "+n.variable)}
}

// GetValue returns the current value, or nil when the slot is undeclared.
func (n *VariableNode) GetValue(ectx *models.ExecutionContext, port string) any {
	if port != OutputPortValue || ectx == nil || ectx.Variables == nil {
		return nil
	}

	value, err := ectx.Variables.Get(n.variable)
	if err != nil {
		ectx.NodeLogger(n).Warn("Variable is not declared", "variable", n.variable)

		return nil
	}

	return value
}
