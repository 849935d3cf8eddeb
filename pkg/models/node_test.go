package models

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requiredTag = "required"

type plainNode struct {
	id      string
	outputs []string
	value   any
}

func (n *plainNode) ID() string   { return n.id }
func (n *plainNode) Type() string { return "plain" }

func (n *plainNode) InputPorts() []InputPort { return nil }

func (n *plainNode) OutputPorts() []OutputPort {
	ports := make([]OutputPort, 0, len(n.outputs))
	for _, name := range n.outputs {
		ports = append(ports, NewOutputPort(n.id, name, ""))
	}

	return ports
}

func (n *plainNode) GetValue(_ *ExecutionContext, _ string) any { return n.value }

type flowNode struct {
	id       string
	inputs   []string
	branches []string
	skip     *bool
}

func (n *flowNode) ID() string   { return n.id }
func (n *flowNode) Type() string { return "flow" }

func (n *flowNode) InputPorts() []InputPort {
	inputs, _ := FlowPorts(n.id)
	for _, name := range n.inputs {
		inputs = append(inputs, NewInputPort(n.id, name, ""))
	}

	return inputs
}

func (n *flowNode) OutputPorts() []OutputPort {
	_, outputs := FlowPorts(n.id)
	for _, name := range n.branches {
		outputs = append(outputs, NewBranchPort(n.id, name, ""))
	}

	return outputs
}

func (n *flowNode) Execute(context.Context, *ExecutionContext) error { return nil }

type asyncFlowNode struct {
	flowNode
}

func (n *asyncFlowNode) Done() <-chan struct{} { return nil }

type controlFlowNode struct {
	flowNode
}

func (n *controlFlowNode) BranchPorts() []string { return n.branches }

type skippableFlowNode struct {
	flowNode
	canSkip bool
}

func (n *skippableFlowNode) CanSkip() bool { return n.canSkip }

func TestConnection_Validation_MissingFields(t *testing.T) {
	testCases := []struct {
		name       string
		connection *Connection
		fieldName  string
	}{
		{
			name:       "missing source port",
			connection: &Connection{ID: "conn-1", TargetPort: "b:enter"},
			fieldName:  "SourcePort",
		},
		{
			name:       "missing target port",
			connection: &Connection{ID: "conn-1", SourcePort: "a:exit"},
			fieldName:  "TargetPort",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			validate := validator.New()
			err := validate.Struct(tc.connection)
			require.Error(t, err)

			var validationErrors validator.ValidationErrors

			require.True(t, errors.As(err, &validationErrors))

			found := false

			for _, fieldErr := range validationErrors {
				if fieldErr.Field() == tc.fieldName && fieldErr.Tag() == requiredTag {
					found = true

					break
				}
			}

			assert.True(t, found, "Should have validation error for required %s field", tc.fieldName)
		})
	}
}

func TestConnection_NodeIDs(t *testing.T) {
	connection := Connection{SourcePort: "scene:1:exit", TargetPort: "next:enter"}

	assert.Equal(t, "scene:1", connection.SourceNodeID())
	assert.Equal(t, "next", connection.TargetNodeID())
}

func TestParsePortID(t *testing.T) {
	tests := []struct {
		portID string
		nodeID string
		port   string
		ok     bool
	}{
		{portID: "a:exit", nodeID: "a", port: "exit", ok: true},
		{portID: "ns:a:case_0", nodeID: "ns:a", port: "case_0", ok: true},
		{portID: "no-separator", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.portID, func(t *testing.T) {
			nodeID, port, ok := ParsePortID(tt.portID)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.nodeID, nodeID)
			assert.Equal(t, tt.port, port)
		})
	}

	assert.Equal(t, "a:exit", MakePortID("a", PortExit))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		node Node
		kind NodeKind
	}{
		{name: "plain", node: &plainNode{id: "v"}, kind: KindPlain},
		{name: "interactive", node: &flowNode{id: "a"}, kind: KindInteractive},
		{name: "async", node: &asyncFlowNode{flowNode{id: "b"}}, kind: KindAsync},
		{name: "control", node: &controlFlowNode{flowNode{id: "c", branches: []string{"true"}}}, kind: KindControl},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.node))
		})
	}

	assert.True(t, IsAsync(&asyncFlowNode{}))
	assert.False(t, IsAsync(&flowNode{}))
}

func TestCanSkip(t *testing.T) {
	assert.True(t, CanSkip(&flowNode{id: "a"}), "nodes without the trait are skippable")
	assert.True(t, CanSkip(&skippableFlowNode{canSkip: true}))
	assert.False(t, CanSkip(&skippableFlowNode{canSkip: false}))
}

func TestFlowPorts(t *testing.T) {
	inputs, outputs := FlowPorts("line")

	require.Len(t, inputs, 1)
	require.Len(t, outputs, 1)
	assert.Equal(t, "line:enter", inputs[0].ID)
	assert.Equal(t, "line:exit", outputs[0].ID)
	assert.Equal(t, PortDirectionInput, inputs[0].GetDirection())
	assert.Equal(t, PortDirectionOutput, outputs[0].GetDirection())
	assert.False(t, outputs[0].Branch)
	assert.True(t, NewBranchPort("if", "true", "").Branch)
}
