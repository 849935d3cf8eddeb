package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/persistence/file"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/services"
	"github.com/dukex/storyflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

const lanternDocument = `{
  "id": "lantern",
  "name": "The Lantern",
  "variables": [{"name": "lit", "type": "bool", "start": false}],
  "nodes": [
    {"id": "start", "type": "start"},
    {"id": "dark", "type": "dialogue", "config": {"text": "It is dark."}},
    {"id": "light", "type": "choice", "config": {"text": "Light the lantern?", "variants": ["Yes", "No"]}},
    {"id": "glow", "type": "dialogue", "config": {"text": "Done."}},
    {"id": "end", "type": "exit"}
  ],
  "connections": [
    {"source_port": "start:exit", "target_port": "dark:enter"},
    {"source_port": "dark:exit", "target_port": "light:enter"},
    {"source_port": "light:exit", "target_port": "glow:enter"},
    {"source_port": "glow:exit", "target_port": "end:enter"}
  ]
}`

const lanternYAML = `id: lantern
name: The Lantern
nodes:
  - id: start
    type: start
  - id: dark
    type: dialogue
    config:
      text: It is dark.
connections:
  - source_port: start:exit
    target_port: dark:enter
`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	graphs := services.NewGraphs(reg, slog.Default())
	saves := savegame.NewService(file.NewPersistence(t.TempDir()), slog.Default())
	runs := services.NewRuns(graphs, saves, slog.Default())

	t.Cleanup(func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()

		assert.NoError(t, runs.Shutdown(ctx))
	})

	handlers := web.NewAPIHandlers(graphs, runs, validator.New(validator.WithRequiredStructEnabled()), reg)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/nodes", handlers.GetNodeTypes)

	g := app.Group("/graphs")
	g.Get("/", handlers.GetGraphs)
	g.Post("/", handlers.CreateGraph)
	g.Get("/:id", handlers.GetGraph)
	g.Delete("/:id", handlers.DeleteGraph)
	g.Post("/:id/runs", handlers.StartRun)
	g.Get("/:id/saves", handlers.GetSaves)
	g.Post("/:id/saves/:slot/load", handlers.LoadSave)
	g.Delete("/:id/saves/:slot", handlers.DeleteSave)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/pause", handlers.PauseRun)
	r.Post("/:id/continue", handlers.ContinueRun)
	r.Post("/:id/stop", handlers.StopRun)
	r.Post("/:id/jump", handlers.JumpRun)
	r.Post("/:id/advance", handlers.AdvanceRun)
	r.Post("/:id/choices", handlers.ChooseRun)
	r.Post("/:id/saves/:slot", handlers.SaveRun)

	return app
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), testTimeout)
}

func doRequest(t *testing.T, app *fiber.App, method, path, contentType, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))

	return v
}

func createLantern(t *testing.T, app *fiber.App) {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/graphs", fiber.MIMEApplicationJSON, lanternDocument)
	require.Equal(t, http.StatusCreated, status, string(body))
}

func startRun(t *testing.T, app *fiber.App, body string) services.RunStatus {
	t.Helper()

	status, data := doRequest(t, app, http.MethodPost, "/graphs/lantern/runs", fiber.MIMEApplicationJSON, body)
	require.Equal(t, http.StatusCreated, status, string(data))

	return decode[services.RunStatus](t, data)
}

func waitForPrompt(t *testing.T, app *fiber.App, runID, nodeID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		status, data := doRequest(t, app, http.MethodGet, "/runs/"+runID, "", "")
		if status != http.StatusOK {
			return false
		}

		var run services.RunStatus
		if json.Unmarshal(data, &run) != nil {
			return false
		}

		for _, prompt := range run.Prompts {
			if prompt.NodeID == nodeID {
				return true
			}
		}

		return false
	}, testTimeout, 5*time.Millisecond, "prompt %s never shown", nodeID)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)

	result := decode[map[string]any](t, body)
	assert.Equal(t, "healthy", result["status"])
	assert.Equal(t, "Save store is healthy", result["checkers"].(map[string]any)["saves"])
}

func TestAPIHandlers_GetNodeTypes(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/nodes", "", "")
	require.Equal(t, http.StatusOK, status)

	types := decode[[]web.NodeTypeResponse](t, body)
	require.NotEmpty(t, types)

	ids := make([]string, 0, len(types))
	for _, nodeType := range types {
		ids = append(ids, nodeType.ID)
	}

	assert.Contains(t, ids, "dialogue")
	assert.Contains(t, ids, "choice")
}

func TestAPIHandlers_CreateGraph(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		body           string
		path           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "json document",
			contentType:    fiber.MIMEApplicationJSON,
			body:           lanternDocument,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "yaml document",
			contentType:    "application/yaml",
			body:           lanternYAML,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			contentType:    fiber.MIMEApplicationJSON,
			body:           "invalid-json",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "failed to parse JSON graph document",
		},
		{
			name:           "unknown node type",
			contentType:    fiber.MIMEApplicationJSON,
			body:           `{"id": "x", "nodes": [{"id": "a", "type": "ghost"}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "node type not registered",
		},
		{
			name:           "invalid replace flag",
			contentType:    fiber.MIMEApplicationJSON,
			body:           lanternDocument,
			path:           "/graphs?replace=maybe",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid query parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t)

			path := tt.path
			if path == "" {
				path = "/graphs"
			}

			status, body := doRequest(t, app, http.MethodPost, path, tt.contentType, tt.body)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			summary := decode[services.GraphSummary](t, body)
			assert.Equal(t, "lantern", summary.ID)
			assert.Equal(t, "The Lantern", summary.Name)
		})
	}
}

func TestAPIHandlers_CreateGraphConflict(t *testing.T) {
	app := setupTestApp(t)
	createLantern(t, app)

	status, body := doRequest(t, app, http.MethodPost, "/graphs", fiber.MIMEApplicationJSON, lanternDocument)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "graph already exists")

	status, _ = doRequest(t, app, http.MethodPost, "/graphs?replace=true", fiber.MIMEApplicationJSON, lanternDocument)
	assert.Equal(t, http.StatusCreated, status)
}

func TestAPIHandlers_Graphs(t *testing.T) {
	app := setupTestApp(t)
	createLantern(t, app)

	status, body := doRequest(t, app, http.MethodGet, "/graphs", "", "")
	require.Equal(t, http.StatusOK, status)

	list := decode[map[string]any](t, body)
	assert.InDelta(t, 1, list["total_count"], 0)

	status, body = doRequest(t, app, http.MethodGet, "/graphs/lantern", "", "")
	require.Equal(t, http.StatusOK, status)

	summary := decode[services.GraphSummary](t, body)
	assert.Equal(t, []string{"dark", "light", "glow", "end"}, summary.Sequence)

	status, _ = doRequest(t, app, http.MethodDelete, "/graphs/lantern", "", "")
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/graphs/lantern", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "graph_not_found")
}

func TestAPIHandlers_PlayRun(t *testing.T) {
	app := setupTestApp(t)
	createLantern(t, app)

	run := startRun(t, app, "")
	assert.Equal(t, "lantern", run.GraphID)

	waitForPrompt(t, app, run.ID, "dark")

	status, body := doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/choices", fiber.MIMEApplicationJSON, `{"index": 0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "another kind")

	status, _ = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/advance", "", "")
	require.Equal(t, http.StatusOK, status)

	waitForPrompt(t, app, run.ID, "light")

	status, body = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/choices", fiber.MIMEApplicationJSON, `{"index": 5}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "out of range")

	status, _ = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/choices", fiber.MIMEApplicationJSON, `{"node_id": "light", "index": 1}`)
	require.Equal(t, http.StatusOK, status)

	waitForPrompt(t, app, run.ID, "glow")

	status, _ = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/advance", fiber.MIMEApplicationJSON, `{"node_id": "glow"}`)
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		_, data := doRequest(t, app, http.MethodGet, "/runs/"+run.ID, "", "")

		var current services.RunStatus
		if json.Unmarshal(data, &current) != nil {
			return false
		}

		return current.State == "ended"
	}, testTimeout, 5*time.Millisecond)

	status, body = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/pause", "", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "executor is not running")
}

func TestAPIHandlers_RunControl(t *testing.T) {
	app := setupTestApp(t)
	createLantern(t, app)

	run := startRun(t, app, `{"from_node": "light"}`)
	waitForPrompt(t, app, run.ID, "light")

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectedState  string
	}{
		{name: "pause", path: "/pause", expectedStatus: http.StatusOK, expectedState: "paused"},
		{name: "continue", path: "/continue", expectedStatus: http.StatusOK},
		{name: "jump without node", path: "/jump", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "jump unknown node", path: "/jump", body: `{"node_id": "ghost"}`, expectedStatus: http.StatusBadRequest},
		{name: "jump", path: "/jump", body: `{"node_id": "glow"}`, expectedStatus: http.StatusOK},
		{name: "stop", path: "/stop", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType := ""
			if tt.body != "" {
				contentType = fiber.MIMEApplicationJSON
			}

			status, body := doRequest(t, app, http.MethodPost, "/runs/"+run.ID+tt.path, contentType, tt.body)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			if tt.expectedState != "" {
				current := decode[services.RunStatus](t, body)
				assert.Equal(t, tt.expectedState, string(current.State))
			}
		})
	}

	status, body := doRequest(t, app, http.MethodGet, "/runs", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), run.ID)
}

func TestAPIHandlers_UnknownRun(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/runs/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "run_not_found")

	status, _ = doRequest(t, app, http.MethodPost, "/graphs/ghost/runs", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_SaveAndLoad(t *testing.T) {
	app := setupTestApp(t)
	createLantern(t, app)

	run := startRun(t, app, "")
	waitForPrompt(t, app, run.ID, "dark")

	status, _ := doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/advance", "", "")
	require.Equal(t, http.StatusOK, status)
	waitForPrompt(t, app, run.ID, "light")

	status, body := doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/saves/slot-1", "", "")
	require.Equal(t, http.StatusCreated, status, string(body))

	snapshot := decode[map[string]any](t, body)
	assert.Equal(t, "light", snapshot["node_id"])
	assert.Equal(t, "slot-1", snapshot["slot"])

	status, body = doRequest(t, app, http.MethodGet, "/graphs/lantern/saves", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1, decode[map[string]any](t, body)["total_count"], 0)

	status, _ = doRequest(t, app, http.MethodPost, "/runs/"+run.ID+"/stop", "", "")
	require.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, app, http.MethodPost, "/graphs/lantern/saves/slot-1/load", "", "")
	require.Equal(t, http.StatusOK, status, string(body))

	loaded := decode[services.RunStatus](t, body)
	assert.NotEqual(t, run.ID, loaded.ID)
	waitForPrompt(t, app, loaded.ID, "light")

	status, body = doRequest(t, app, http.MethodPost, "/graphs/lantern/saves/missing/load", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "save_not_found")

	status, _ = doRequest(t, app, http.MethodDelete, "/graphs/lantern/saves/slot-1", "", "")
	assert.Equal(t, http.StatusNoContent, status)
}
