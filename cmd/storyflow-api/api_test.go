package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/persistence/file"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bellDocument = `id: bell
name: The Bell
nodes:
  - id: start
    type: start
  - id: ring
    type: dialogue
    config:
      character: Keeper
      text: Ding.
  - id: end
    type: exit
connections:
  - source_port: start:exit
    target_port: ring:enter
  - source_port: ring:exit
    target_port: end:enter
`

func setupTestAPI(t *testing.T) *API {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	api := NewAPI(
		slog.Default(),
		reg,
		savegame.NewService(file.NewPersistence(t.TempDir()), slog.Default()),
	)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		assert.NoError(t, api.Shutdown(ctx))
	})

	return api
}

func get(t *testing.T, api *API, path string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := api.App().Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestAPI_RootEndpoint(t *testing.T) {
	resp, body := get(t, setupTestAPI(t), "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Storyflow API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	resp, body := get(t, setupTestAPI(t), "/livez")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_GetGraphs_Empty(t *testing.T) {
	resp, body := get(t, setupTestAPI(t), "/graphs")

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Graphs     []services.GraphSummary `json:"graphs"`
		TotalCount int                     `json:"total_count"`
	}

	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Graphs)
	assert.Zero(t, list.TotalCount)
}

func TestAPI_LoadGraphs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bell.yaml"), []byte(bellDocument), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	api := setupTestAPI(t)

	count, err := api.LoadGraphs(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	resp, body := get(t, api, "/graphs/bell")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary services.GraphSummary

	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, "The Bell", summary.Name)
	assert.Equal(t, []string{"ring", "end"}, summary.Sequence)
}

func TestAPI_LoadGraphs_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))

	_, err := setupTestAPI(t).LoadGraphs(context.Background(), dir)
	assert.Error(t, err)
}

func TestAPI_CreateGraphAndStartRun(t *testing.T) {
	app := setupTestAPI(t).App()

	req := httptest.NewRequest(http.MethodPost, "/graphs", bytes.NewBufferString(bellDocument))
	req.Header.Set("Content-Type", "application/yaml")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/graphs/bell/runs", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)

	var status services.RunStatus

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bell", status.GraphID)
	assert.NotEmpty(t, status.ID)
}

func TestAPI_CORS_Headers(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/graphs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := setupTestAPI(t).App().Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
