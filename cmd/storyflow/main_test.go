package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := NewApp()
	app.Reader = strings.NewReader(input)
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(context.Background(), append([]string{"storyflow", "--plugins-path", t.TempDir()}, args...))

	return out.String(), err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "valid yaml", args: []string{"testdata/tale.yaml"}, want: "tale: ok (5 nodes, 4 connections, 1 variables)"},
		{name: "valid json", args: []string{"testdata/loop.json"}, want: "knot: ok"},
		{name: "missing path", wantErr: errMissingFile.Error()},
		{name: "missing file", args: []string{"testdata/ghost.yaml"}, wantErr: "failed to read graph document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", append([]string{"validate"}, tt.args...)...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestLinearize(t *testing.T) {
	out, err := run(t, "", "linearize", "testdata/tale.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Graph: A Short Tale (tale)")
	assert.Contains(t, out, "   1. intro [dialogue]")
	assert.Contains(t, out, "   3. pick [choice]")
	assert.NotContains(t, out, "Dropped")
}

func TestLinearize_ReportsCycle(t *testing.T) {
	out, err := run(t, "", "linearize", "testdata/loop.json")
	require.NoError(t, err)

	assert.Contains(t, out, "   1. a [log]")
	assert.Contains(t, out, "Dropped (cycle):")
	assert.Contains(t, out, "b")
	assert.Contains(t, out, "c")
}

func TestPlay_SaveAndResume(t *testing.T) {
	saves := "file://" + t.TempDir()

	out, err := run(t, "1\n", "--save-store-url", saves, "play", "--auto-advance", "testdata/tale.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "Narrator: The door is closed.")
	assert.Contains(t, out, "  2) Leave")
	assert.Contains(t, out, "-- exit after")

	out, err = run(t, "", "--save-store-url", saves, "saves", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "tale")
	assert.Contains(t, out, "autosave")
	assert.Contains(t, out, "checkpoint")

	out, err = run(t, "2\n", "--save-store-url", saves, "play", "--auto-advance", "--load-slot", "autosave", "testdata/tale.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "Narrator", "resumed after the intro")
	assert.Contains(t, out, "Open it?")

	out, err = run(t, "", "--save-store-url", saves, "saves", "delete", "tale", "autosave")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted tale/autosave")
}

func TestPlay_FromNode(t *testing.T) {
	out, err := run(t, "2\n", "--save-store-url", "file://"+t.TempDir(), "play", "--from-node", "pick", "testdata/tale.yaml")
	require.NoError(t, err)

	assert.NotContains(t, out, "Narrator")
	assert.Contains(t, out, "Open it?")

	_, err = run(t, "", "--save-store-url", "file://"+t.TempDir(), "play", "--from-node", "ghost", "testdata/tale.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jump target not found")
}

func TestSavesDelete_RequiresArgs(t *testing.T) {
	_, err := run(t, "", "--save-store-url", "file://"+t.TempDir(), "saves", "delete", "tale")
	require.Error(t, err)
}
