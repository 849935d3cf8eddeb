package transform

import (
	"testing"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) *models.ExecutionContext {
	t.Helper()

	store := variables.NewStore(nil)
	require.NoError(t, store.Declare("first_name", variables.TypeString, "Mira"))
	require.NoError(t, store.Declare("last_name", variables.TypeString, "Sato"))
	require.NoError(t, store.Declare("day", variables.TypeInt, 3))
	require.NoError(t, store.Declare("has_key", variables.TypeBool, true))

	return &models.ExecutionContext{RunID: "run-test", Variables: store}
}

func TestNewTransformNode_MissingExpression(t *testing.T) {
	_, err := NewTransformNode("calc", map[string]any{})
	assert.EqualError(t, err, "missing required field 'expression'")
}

func TestTransformNode_GetValue(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		expected   any
	}{
		{name: "string", expression: "{{.vars.first_name}} {{.vars.last_name}}", expected: "Mira Sato"},
		{name: "number", expression: "{{.vars.day}}", expected: 3.0},
		{name: "boolean", expression: "{{and .vars.has_key true}}", expected: true},
		{name: "object", expression: `{"day": {{.vars.day}}}`, expected: map[string]any{"day": 3.0}},
		{name: "broken template", expression: "{{.vars.day", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewTransformNode("calc", map[string]any{"expression": tt.expression})
			require.NoError(t, err)

			assert.Equal(t, tt.expected, node.GetValue(newContext(t), OutputPortResult))
		})
	}
}

func TestTransformNode_Ports(t *testing.T) {
	node, err := NewTransformNode("calc", map[string]any{"expression": "1"})
	require.NoError(t, err)

	assert.Equal(t, models.KindPlain, models.KindOf(node))
	assert.Empty(t, node.InputPorts())
	assert.Equal(t, "calc:result", node.OutputPorts()[0].ID)
	assert.Nil(t, node.GetValue(newContext(t), "other"))
}
