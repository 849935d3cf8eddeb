package savegame

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/mocks"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes/autosave"
	"github.com/dukex/storyflow/pkg/nodes/dialogue"
	"github.com/dukex/storyflow/pkg/nodes/variable"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/dukex/storyflow/pkg/persistence/file"
	"github.com/dukex/storyflow/pkg/testutil"
	"github.com/dukex/storyflow/pkg/variables"
	"github.com/dukex/storyflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

type story struct {
	graph *models.Graph
	intro *testutil.AsyncStep
	line  *testutil.AsyncStep
	pick  *dialogue.ChoiceNode
}

// newStory builds intro (async) -> give (+5 coins) -> line (async) -> pick (choice).
func newStory(t *testing.T) *story {
	t.Helper()

	rec := testutil.NewRecorder()

	give, err := variable.NewSetVariableNode("give", map[string]any{
		"variable":  "coins",
		"operation": "add",
		"value":     5,
	})
	require.NoError(t, err)

	pick, err := dialogue.NewChoiceNode("pick", map[string]any{"variants": []any{"Left", "Right"}})
	require.NoError(t, err)

	s := &story{
		intro: testutil.NewAsyncStep("intro", rec, 0),
		line:  testutil.NewAsyncStep("line", rec, 0),
		pick:  pick,
	}

	s.graph = testutil.NewGraph("story").
		Variable(t, "coins", variables.TypeInt, 0).
		Add(s.intro, give, s.line, pick).
		Chain("intro", "give", "line", "pick").
		Build(t)

	return s
}

func coins(t *testing.T, graph *models.Graph) any {
	t.Helper()

	value, err := graph.Variables().Get("coins")
	require.NoError(t, err)

	return value
}

func suspendedAt(t *testing.T, executor *workflow.Executor, nodeID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		return executor.State() == workflow.StateSuspended && executor.Current() == nodeID
	}, testTimeout, time.Millisecond)
}

func stop(t *testing.T, executor *workflow.Executor) {
	t.Helper()

	_ = executor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_ = executor.Wait(ctx)
}

func TestService_Save(t *testing.T) {
	s := newStory(t)
	store := file.NewPersistence(t.TempDir())
	service := NewService(store, nil)
	executor := workflow.NewExecutor()

	require.NoError(t, executor.Execute(context.Background(), s.graph))
	suspendedAt(t, executor, "intro")
	s.intro.Complete()
	suspendedAt(t, executor, "line")

	defer stop(t, executor)

	snapshot, err := service.Save(context.Background(), "slot-1", executor)
	require.NoError(t, err)

	assert.Equal(t, "slot-1", snapshot.Slot)
	assert.Equal(t, "story", snapshot.GraphID)
	assert.Equal(t, executor.RunID(), snapshot.RunID)
	assert.Equal(t, "line", snapshot.NodeID)
	assert.Equal(t, map[string]any{"coins": int64(5)}, snapshot.Variables)
	assert.Contains(t, snapshot.NodeStates, "pick")

	stored, err := store.Load(context.Background(), "story", "slot-1")
	require.NoError(t, err)
	assert.Equal(t, "line", stored.NodeID)
	assert.InDelta(t, 5, stored.Variables["coins"], 0)
}

func TestService_SaveDefaultsSlot(t *testing.T) {
	s := newStory(t)
	store := &mocks.MockPersistence{}
	store.On("Save", mock.Anything, mock.MatchedBy(func(snapshot *models.Snapshot) bool {
		return snapshot.Slot == DefaultSlot && snapshot.NodeID == "intro"
	})).Return(nil)

	executor := workflow.NewExecutor()
	require.NoError(t, executor.Execute(context.Background(), s.graph))
	suspendedAt(t, executor, "intro")

	defer stop(t, executor)

	_, err := NewService(store, nil).Save(context.Background(), "", executor)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestService_SaveStoreFailure(t *testing.T) {
	s := newStory(t)
	store := &mocks.MockPersistence{}
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	executor := workflow.NewExecutor()
	require.NoError(t, executor.Execute(context.Background(), s.graph))
	suspendedAt(t, executor, "intro")

	defer stop(t, executor)

	_, err := NewService(store, nil).Save(context.Background(), "slot-1", executor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCapture_NotRunning(t *testing.T) {
	_, err := Capture("slot-1", workflow.NewExecutor())
	assert.ErrorIs(t, err, workflow.ErrNotRunning)
}

func TestService_LoadStartsNewRun(t *testing.T) {
	s := newStory(t)
	store := file.NewPersistence(t.TempDir())
	require.NoError(t, store.Save(context.Background(), &models.Snapshot{
		Slot:       "slot-1",
		GraphID:    "story",
		NodeID:     "line",
		Variables:  map[string]any{"coins": 7},
		NodeStates: map[string]any{"pick": map[string]any{"selected": 1}},
	}))

	executor := workflow.NewExecutor()
	snapshot, err := NewService(store, nil).Load(context.Background(), "slot-1", executor, s.graph)
	require.NoError(t, err)
	assert.Equal(t, "line", snapshot.NodeID)

	suspendedAt(t, executor, "line")

	defer stop(t, executor)

	assert.Equal(t, int64(7), coins(t, s.graph), "saved values win over the short-circuited prefix")
	assert.Equal(t, 1, s.pick.Selected())
	assert.Zero(t, s.intro.Executions())
}

func TestService_LoadJumpsRunningGraph(t *testing.T) {
	s := newStory(t)
	store := file.NewPersistence(t.TempDir())
	require.NoError(t, store.Save(context.Background(), &models.Snapshot{
		Slot:      "slot-1",
		GraphID:   "story",
		NodeID:    "line",
		Variables: map[string]any{"coins": 7},
	}))

	executor := workflow.NewExecutor()
	require.NoError(t, executor.Execute(context.Background(), s.graph))
	suspendedAt(t, executor, "intro")

	runID := executor.RunID()

	_, err := NewService(store, nil).Load(context.Background(), "slot-1", executor, s.graph)
	require.NoError(t, err)

	suspendedAt(t, executor, "line")

	defer stop(t, executor)

	assert.Equal(t, runID, executor.RunID(), "a jump keeps the run")
	assert.Equal(t, int64(7), coins(t, s.graph))
	assert.Equal(t, -1, s.pick.Selected(), "stateful nodes without saved state are reset")
}

func TestService_LoadMissingSlot(t *testing.T) {
	s := newStory(t)
	executor := workflow.NewExecutor()

	_, err := NewService(file.NewPersistence(t.TempDir()), nil).Load(context.Background(), "nope", executor, s.graph)
	require.Error(t, err)
	assert.True(t, persistence.IsSaveNotFound(err))
	assert.Equal(t, workflow.StateIdle, executor.State())
}

func TestService_LoadUnknownNode(t *testing.T) {
	s := newStory(t)
	store := &mocks.MockPersistence{}
	store.On("Load", mock.Anything, "story", "old").Return(&models.Snapshot{
		Slot: "old", GraphID: "story", NodeID: "removed",
	}, nil)

	executor := workflow.NewExecutor()

	_, err := NewService(store, nil).Load(context.Background(), "old", executor, s.graph)
	require.ErrorIs(t, err, workflow.ErrJumpTargetNotFound)
	assert.Equal(t, workflow.StateIdle, executor.State())
}

func TestService_ListAndDelete(t *testing.T) {
	store := &mocks.MockPersistence{}
	store.On("List", mock.Anything, "story").Return([]*models.Snapshot{{Slot: "a"}}, nil)
	store.On("Delete", mock.Anything, "story", "a").Return(nil)

	service := NewService(store, nil)

	snapshots, err := service.List(context.Background(), "story")
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	require.NoError(t, service.Delete(context.Background(), "story", "a"))
	store.AssertExpectations(t)
}

func TestSaver_AutosaveNode(t *testing.T) {
	rec := testutil.NewRecorder()

	give, err := variable.NewSetVariableNode("give", map[string]any{"variable": "coins", "value": 3})
	require.NoError(t, err)

	save, err := autosave.NewAutosaveNode("save", map[string]any{})
	require.NoError(t, err)

	line := testutil.NewAsyncStep("line", rec, 0)

	graph := testutil.NewGraph("autosaved").
		Variable(t, "coins", variables.TypeInt, 0).
		Add(give, save, line).
		Chain("give", "save", "line").
		Build(t)

	store := file.NewPersistence(t.TempDir())
	saver := NewSaver(NewService(store, nil))
	executor := workflow.NewExecutor(workflow.WithSaver(saver))
	saver.Bind(executor)

	require.NoError(t, executor.Execute(context.Background(), graph))
	suspendedAt(t, executor, "line")

	defer stop(t, executor)

	snapshot, err := store.Load(context.Background(), "autosaved", DefaultSlot)
	require.NoError(t, err)
	assert.Equal(t, "save", snapshot.NodeID)
	assert.InDelta(t, 3, snapshot.Variables["coins"], 0)
}

func TestSaver_Unbound(t *testing.T) {
	saver := NewSaver(NewService(&mocks.MockPersistence{}, nil))

	assert.ErrorIs(t, saver.Save(context.Background(), "slot"), workflow.ErrNotRunning)
}

func TestService_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		healthy bool
	}{
		{name: "healthy", healthy: true},
		{name: "store down", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockPersistence{}
			store.On("HealthCheck", mock.Anything).Return(tt.err)

			message, ok := NewService(store, nil).HealthCheck(context.Background())
			assert.Equal(t, tt.healthy, ok)

			if tt.err != nil {
				assert.Contains(t, message, "connection refused")
			}
		})
	}
}
