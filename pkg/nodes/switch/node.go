// Package switchnode provides a multi-way branching node.
package switchnode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/template"
)

const (
	TypeSwitch = "switch"

	OutputPortDefault = "default"
	InputPortValue    = "value"
)

// ErrNoValue is returned when neither a connection nor a template provides the value.
var ErrNoValue = errors.New("no value connected or configured")

// SwitchCase maps one value to the branch port its chains hang from.
type SwitchCase struct {
	Value      string `json:"value"`
	OutputPort string `json:"output_port"`
}

// SwitchNode runs the chains of the first case matching its value, or the
// default port when nothing matches.
type SwitchNode struct {
	id    string
	value string
	cases []SwitchCase
}

// NewSwitchNode creates a new switch node. Cases without an output_port
// get "case_<index>".
func NewSwitchNode(id string, config map[string]any) (*SwitchNode, error) {
	value, _ := config["value"].(string)

	var cases []SwitchCase

	if casesConfig, ok := config["cases"].([]any); ok {
		for i, caseAny := range casesConfig {
			switchCase := SwitchCase{OutputPort: fmt.Sprintf("case_%d", i)}

			switch c := caseAny.(type) {
			case map[string]any:
				caseValue, ok := c["value"]
				if !ok {
					return nil, fmt.Errorf("case %d missing 'value'", i)
				}

				switchCase.Value = normalize(caseValue)

				if port, ok := c["output_port"].(string); ok && port != "" {
					switchCase.OutputPort = port
				}
			case string, float64, int, int64, bool:
				switchCase.Value = normalize(c)
			default:
				return nil, fmt.Errorf("case %d must be a value or an object", i)
			}

			if switchCase.OutputPort == OutputPortDefault || switchCase.OutputPort == models.PortExit {
				return nil, fmt.Errorf("case %d uses reserved port '%s'", i, switchCase.OutputPort)
			}

			cases = append(cases, switchCase)
		}
	}

	return &SwitchNode{
		id:    id,
		value: value,
		cases: cases,
	}, nil
}

// ID returns the node ID.
func (n *SwitchNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *SwitchNode) Type() string {
	return TypeSwitch
}

// Cases returns the configured cases.
func (n *SwitchNode) Cases() []SwitchCase {
	return n.cases
}

// BranchPorts returns every case port plus the default port.
func (n *SwitchNode) BranchPorts() []string {
	ports := make([]string, 0, len(n.cases)+1)
	for _, c := range n.cases {
		ports = append(ports, c.OutputPort)
	}

	return append(ports, OutputPortDefault)
}

// Execute evaluates the value and runs the chains of the matching port.
func (n *SwitchNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	port, err := n.Match(ectx)
	if err != nil {
		return err
	}

	ectx.NodeLogger(n).DebugContext(ctx, "Switch matched", "port", port)

	return ectx.Branches.Run(ctx, ectx, n.id, port)
}

// Match returns the port of the first case equal to the value.
func (n *SwitchNode) Match(ectx *models.ExecutionContext) (string, error) {
	value, err := n.resolve(ectx)
	if err != nil {
		return "", err
	}

	matched := normalize(value)

	for _, c := range n.cases {
		if c.Value == matched {
			return c.OutputPort, nil
		}
	}

	return OutputPortDefault, nil
}

func (n *SwitchNode) resolve(ectx *models.ExecutionContext) (any, error) {
	if value, ok := ectx.InputValue(n.id, InputPortValue); ok {
		return value, nil
	}

	if n.value == "" {
		return nil, ErrNoValue
	}

	result, err := template.RenderWithContext(n.value, ectx)
	if err != nil {
		return nil, fmt.Errorf("value evaluation failed: %w", err)
	}

	return result, nil
}

// SkipWait cancels chains still running from an earlier invocation.
func (n *SwitchNode) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	if ectx != nil && ectx.Branches != nil {
		ectx.Branches.Cancel(n.id)
	}
}

// InputPorts returns the input ports for the node.
func (n *SwitchNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return append(inputs, models.NewInputPort(n.id, InputPortValue, "Value matched against the cases"))
}

// OutputPorts returns the output ports for the node.
func (n *SwitchNode) OutputPorts() []models.OutputPort {
	_, ports := models.FlowPorts(n.id)

	for _, c := range n.cases {
		ports = append(ports, models.NewBranchPort(n.id, c.OutputPort, fmt.Sprintf("Chains run when the value is '%s'", c.Value)))
	}

	return append(ports, models.NewBranchPort(n.id, OutputPortDefault, "Chains run when no case matches"))
}

// normalize renders a value so that 2, 2.0 and "2" compare equal.
func normalize(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
