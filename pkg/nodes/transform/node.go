// Package transform provides a data node computing a value from a template expression.
package transform

import (
	"errors"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/template"
)

const (
	TypeTransform = "transform"

	OutputPortResult = "result"
)

// TransformNode renders its expression against the story variables each
// time the result port is pulled.
type TransformNode struct {
	id         string
	expression string
}

// NewTransformNode creates a new data transformation node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{
		id:         id,
		expression: expression,
	}, nil
}

// ID returns the node ID.
func (n *TransformNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TransformNode) Type() string {
	return TypeTransform
}

// GetValue renders the expression. A failed render yields nil and is logged.
func (n *TransformNode) GetValue(ectx *models.ExecutionContext, port string) any {
	if port != OutputPortResult {
		return nil
	}

	result, err := template.RenderWithContext(n.expression, ectx)
	if err != nil {
		ectx.NodeLogger(n).Warn("Transformation failed", "error", err)

		return nil
	}

	return result
}

// InputPorts returns the input ports for the node.
func (n *TransformNode) InputPorts() []models.InputPort {
	return nil
}

// OutputPorts returns the output ports for the node.
func (n *TransformNode) OutputPorts() []models.OutputPort {
	return []models.OutputPort{models.NewOutputPort(n.id, OutputPortResult, "Rendered expression, parsed as JSON, number or boolean when possible")}
}
