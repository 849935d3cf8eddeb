package variable

import (
	"context"
	"testing"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *variables.Store {
	t.Helper()

	store := variables.NewStore(nil)
	require.NoError(t, store.Declare("affection", variables.TypeInt, 1))
	require.NoError(t, store.Declare("mood", variables.TypeFloat, 0.5))
	require.NoError(t, store.Declare("name", variables.TypeString, "Mira"))
	require.NoError(t, store.Declare("greeting", variables.TypeString, ""))
	require.NoError(t, store.Declare("met", variables.TypeBool, false))

	return store
}

func newContext(t *testing.T, nodes []models.Node, connections []models.Connection) *models.ExecutionContext {
	t.Helper()

	store := newStore(t)
	graph, err := models.NewGraph("vars", "vars", nodes, connections, store)
	require.NoError(t, err)

	return &models.ExecutionContext{RunID: "run-test", Graph: graph, Variables: store}
}

func TestSetVariableNode_Execute(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		variable string
		expected any
		wantErr  bool
	}{
		{name: "set bool", config: map[string]any{"variable": "met", "value": true}, variable: "met", expected: true},
		{name: "set int from json number", config: map[string]any{"variable": "affection", "value": 5.0}, variable: "affection", expected: int64(5)},
		{name: "add int", config: map[string]any{"variable": "affection", "value": 2, "operation": "add"}, variable: "affection", expected: int64(3)},
		{name: "add float", config: map[string]any{"variable": "mood", "value": 0.25, "operation": "add"}, variable: "mood", expected: 0.75},
		{name: "templated string", config: map[string]any{"variable": "greeting", "value": "Hi {{.vars.name}}"}, variable: "greeting", expected: "Hi Mira"},
		{name: "templated number", config: map[string]any{"variable": "affection", "value": "{{.vars.affection}}0"}, variable: "affection", expected: int64(10)},
		{name: "type mismatch", config: map[string]any{"variable": "met", "value": "yes"}, variable: "met", expected: false, wantErr: true},
		{name: "undeclared", config: map[string]any{"variable": "ghost", "value": 1}, wantErr: true},
		{name: "add to string", config: map[string]any{"variable": "name", "value": 1, "operation": "add"}, variable: "name", expected: "Mira", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewSetVariableNode("set", tt.config)
			require.NoError(t, err)

			ectx := newContext(t, []models.Node{node}, nil)

			err = node.Execute(context.Background(), ectx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tt.variable != "" {
				value, err := ectx.Variables.Get(tt.variable)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, value)
			}
		})
	}
}

func TestSetVariableNode_ValueFromPort(t *testing.T) {
	source, err := NewVariableNode("source", map[string]any{"variable": "name"})
	require.NoError(t, err)

	set, err := NewSetVariableNode("set", map[string]any{"variable": "greeting", "value": "ignored"})
	require.NoError(t, err)

	ectx := newContext(t, []models.Node{source, set}, []models.Connection{
		{SourcePort: "source:value", TargetPort: "set:value"},
	})

	require.NoError(t, set.Execute(context.Background(), ectx))

	value, err := ectx.Variables.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "Mira", value)
}

func TestSetVariableNode_SkipWaitApplies(t *testing.T) {
	node, err := NewSetVariableNode("set", map[string]any{"variable": "met", "value": true})
	require.NoError(t, err)

	assert.False(t, models.CanSkip(node))

	ectx := newContext(t, []models.Node{node}, nil)
	node.SkipWait(context.Background(), ectx)

	value, err := ectx.Variables.Get("met")
	require.NoError(t, err)
	assert.Equal(t, true, value)
}

func TestNewSetVariableNode_Invalid(t *testing.T) {
	_, err := NewSetVariableNode("set", map[string]any{"value": 1})
	assert.EqualError(t, err, "missing required field 'variable'")

	_, err = NewSetVariableNode("set", map[string]any{"variable": "x", "operation": "multiply"})
	assert.Error(t, err)
}

func TestVariableNode_GetValue(t *testing.T) {
	node, err := NewVariableNode("read", map[string]any{"variable": "affection"})
	require.NoError(t, err)

	assert.Equal(t, models.KindPlain, models.KindOf(node))

	ectx := newContext(t, []models.Node{node}, nil)
	assert.Equal(t, int64(1), node.GetValue(ectx, OutputPortValue))

	require.NoError(t, ectx.Variables.Set("affection", 4))
	assert.Equal(t, int64(4), node.GetValue(ectx, OutputPortValue))
	assert.Nil(t, node.GetValue(ectx, "other"))

	ghost, err := NewVariableNode("ghost", map[string]any{"variable": "ghost"})
	require.NoError(t, err)
	assert.Nil(t, ghost.GetValue(ectx, OutputPortValue))
}
