// Package compare provides a data node comparing two values.
package compare

import (
	"fmt"
	"strings"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
)

const (
	TypeCompare = "compare"

	InputPortA       = "a"
	InputPortB       = "b"
	OutputPortResult = "result"
)

// Operators lists the supported comparisons.
var Operators = []string{"==", "!=", "<", "<=", ">", ">="}

// CompareNode serves the result of "a <operator> b" on its result port.
// Unconnected operands fall back to the configured a and b values.
type CompareNode struct {
	id       string
	operator string
	a        any
	b        any
}

// NewCompareNode creates a compare node.
func NewCompareNode(id string, config map[string]any) (*CompareNode, error) {
	operator := "=="
	if op, ok := nodes.String(config, "operator"); ok {
		operator = op
	}

	valid := false

	for _, op := range Operators {
		if op == operator {
			valid = true

			break
		}
	}

	if !valid {
		return nil, fmt.Errorf("invalid operator '%s' (must be one of %s)", operator, strings.Join(Operators, " "))
	}

	return &CompareNode{
		id:       id,
		operator: operator,
		a:        config["a"],
		b:        config["b"],
	}, nil
}

func (n *CompareNode) ID() string {
	return n.id
}

func (n *CompareNode) Type() string {
	return TypeCompare
}

func (n *CompareNode) InputPorts() []models.InputPort {
	return []models.InputPort{
		models.NewInputPort(n.id, InputPortA, "Left operand"),
		models.NewInputPort(n.id, InputPortB, "Right operand"),
	}
}

func (n *CompareNode) OutputPorts() []models.OutputPort {
	return []models.OutputPort{models.NewOutputPort(n.id, OutputPortResult, "Boolean comparison result")}
}

// GetValue pulls both operands and compares them.
func (n *CompareNode) GetValue(ectx *models.ExecutionContext, port string) any {
	if port != OutputPortResult {
		return nil
	}

	a := n.operand(ectx, InputPortA, n.a)
	b := n.operand(ectx, InputPortB, n.b)

	return Compare(n.operator, a, b)
}

func (n *CompareNode) operand(ectx *models.ExecutionContext, port string, fallback any) any {
	if value, ok := ectx.InputValue(n.id, port); ok {
		return value
	}

	return fallback
}

// Compare applies operator to a and b. Numbers compare numerically, other
// values by their text form.
func Compare(operator string, a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)

	if okA && okB {
		switch operator {
		case "==":
			return fa == fb
		case "!=":
			return fa != fb
		case "<":
			return fa < fb
		case "<=":
			return fa <= fb
		case ">":
			return fa > fb
		case ">=":
			return fa >= fb
		}

		return false
	}

	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)

	switch operator {
	case "==":
		return sa == sb
	case "!=":
		return sa != sb
	case "<":
		return sa < sb
	case "<=":
		return sa <= sb
	case ">":
		return sa > sb
	case ">=":
		return sa >= sb
	}

	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}
