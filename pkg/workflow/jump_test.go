package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/events"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jumpNodes returns an in-flight async head and a non-skippable second node.
func jumpNodes(rec *testutil.Recorder) (*testutil.AsyncStep, *testutil.Step) {
	return testutil.NewAsyncStep("a", rec, 0), testutil.NewStep("b", rec, testutil.WithNonSkippable())
}

func TestJumpToNode_ForwardShortCircuitsPrefix(t *testing.T) {
	rec := testutil.NewRecorder()
	a, b := jumpNodes(rec)
	c := testutil.NewStep("c", rec)
	d := testutil.NewStep("d", rec)
	graph := testutil.NewGraph("jump").
		Add(a, b, c, d).
		Chain("a", "b", "c", "d").
		Build(t)

	executor, observer := newTestExecutor()

	require.NoError(t, executor.Execute(context.Background(), graph))
	eventuallyState(t, executor, StateSuspended)

	require.NoError(t, executor.JumpToNode(context.Background(), "c"))
	waitEnded(t, executor)

	assert.Equal(t, 1, rec.Count("skip:b"), "non-skippable node commits its effect once")
	assert.Zero(t, b.Executions())
	assert.Zero(t, rec.Count("skip:a"), "skippable node is dropped silently")
	assert.GreaterOrEqual(t, rec.Count("stop:a"), 1, "in-flight node is stopped")
	assert.Equal(t, 1, c.Executions())
	assert.Equal(t, 1, d.Executions())

	collected := drain(observer)
	assert.Equal(t, []string{"run.started", "jumped:c", "advanced:c", "advanced:d", "run.ended"}, timeline(collected))

	jumped := collected[1].(*events.RunJumped)
	assert.Equal(t, []string{"b"}, jumped.ShortCircuited)
	assert.Equal(t, []string{"c", "d"}, jumped.Sequence)

	end := ended(t, collected)
	assert.Equal(t, events.EndReasonCompleted, end.Reason)
	assert.Equal(t, "d", end.LastNodeID)
}

func TestJumpToNode_Backward(t *testing.T) {
	rec := testutil.NewRecorder()
	first := testutil.NewStep("first", rec)
	line := testutil.NewAsyncStep("line", rec, 0)
	graph := testutil.NewGraph("rewind").
		Add(first, line, testutil.NewStep("last", rec)).
		Chain("first", "line", "last").
		Build(t)

	executor, _ := newTestExecutor()

	require.NoError(t, executor.Execute(context.Background(), graph))
	eventuallyState(t, executor, StateSuspended)

	require.NoError(t, executor.JumpToNode(context.Background(), "first"))
	require.Eventually(t, func() bool {
		return rec.Count("line") == 2 && executor.State() == StateSuspended
	}, testTimeout, time.Millisecond)

	assert.Equal(t, 2, first.Executions())
	assert.Equal(t, []string{"first", "line", "last"}, executor.Sequence())

	line.Complete()
	waitEnded(t, executor)

	assert.Equal(t, 1, rec.Count("last"))
}

func TestJumpToNode_UnknownTargetLeavesRunUntouched(t *testing.T) {
	rec := testutil.NewRecorder()
	a, b := jumpNodes(rec)
	graph := testutil.NewGraph("unknown").
		Add(a, b).
		Chain("a", "b").
		Build(t)

	executor, observer := newTestExecutor()

	require.NoError(t, executor.Execute(context.Background(), graph))
	eventuallyState(t, executor, StateSuspended)

	err := executor.JumpToNode(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrJumpTargetNotFound)

	assert.Equal(t, StateSuspended, executor.State())
	assert.Equal(t, "a", executor.Current())
	assert.Zero(t, rec.Count("stop:a"))

	a.Complete()
	waitEnded(t, executor)

	assert.Equal(t, 1, b.Executions())
	assert.Zero(t, rec.Count("skip:b"))
	assert.NotContains(t, timeline(drain(observer)), "jumped:ghost")
}

func TestJumpToNode_NotRunning(t *testing.T) {
	executor, _ := newTestExecutor()

	assert.ErrorIs(t, executor.JumpToNode(context.Background(), "a"), ErrNotRunning)
	assert.Equal(t, StateIdle, executor.State())
}

func TestJumpToNode_AfterEndedStartsFreshRun(t *testing.T) {
	rec := testutil.NewRecorder()
	a := testutil.NewStep("a", rec)
	b := testutil.NewStep("b", rec)
	c := testutil.NewStep("c", rec)
	graph := testutil.NewGraph("again").
		Add(a, b, c).
		Chain("a", "b", "c").
		Build(t)

	executor, observer := newTestExecutor()

	require.NoError(t, executor.Execute(context.Background(), graph))
	waitEnded(t, executor)

	firstRun := executor.RunID()
	drain(observer)

	require.NoError(t, executor.JumpToNode(context.Background(), "b"))
	waitEnded(t, executor)

	assert.Equal(t, 1, a.Executions())
	assert.Equal(t, 2, b.Executions())
	assert.Equal(t, 2, c.Executions())
	assert.NotEqual(t, firstRun, executor.RunID())

	collected := drain(observer)
	assert.Equal(t, []string{"run.started", "advanced:b", "advanced:c", "run.ended"}, timeline(collected))
	assert.Equal(t, events.EndReasonCompleted, ended(t, collected).Reason)

	assert.ErrorIs(t, executor.JumpToNode(context.Background(), "ghost"), ErrJumpTargetNotFound)
	assert.Equal(t, StateEnded, executor.State())
}

func TestExecuteFrom(t *testing.T) {
	tests := []struct {
		name        string
		from        string
		wantErr     error
		wantRun     []string
		wantSkipped []string
	}{
		{name: "middle node", from: "c", wantRun: []string{"c"}, wantSkipped: []string{"skip:b"}},
		{name: "head node", from: "a", wantRun: []string{"a", "b", "c"}},
		{name: "unknown node", from: "ghost", wantErr: ErrJumpTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			graph := testutil.NewGraph("from").
				Add(
					testutil.NewStep("a", rec),
					testutil.NewStep("b", rec, testutil.WithNonSkippable()),
					testutil.NewStep("c", rec),
				).
				Chain("a", "b", "c").
				Build(t)

			executor, observer := newTestExecutor()

			err := executor.ExecuteFrom(context.Background(), graph, tt.from)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, StateIdle, executor.State())

				return
			}

			require.NoError(t, err)
			waitEnded(t, executor)

			var executed, skipped []string

			for _, event := range rec.Events() {
				switch {
				case strings.HasPrefix(event, "skip:"):
					skipped = append(skipped, event)
				case strings.HasPrefix(event, "reset:"):
				default:
					executed = append(executed, event)
				}
			}

			assert.Equal(t, tt.wantRun, executed)
			assert.Equal(t, tt.wantSkipped, skipped)

			started := drain(observer)[0].(*events.RunStarted)
			assert.Equal(t, tt.from, started.StartAt)
		})
	}
}

func TestJumpToNode_BeforeResumeRunsAfterShortCircuit(t *testing.T) {
	rec := testutil.NewRecorder()
	a, b := jumpNodes(rec)
	c := testutil.NewStep("c", rec)
	graph := testutil.NewGraph("resume").
		Add(a, b, c).
		Chain("a", "b", "c").
		Build(t)

	executor, _ := newTestExecutor()

	require.NoError(t, executor.Execute(context.Background(), graph))
	eventuallyState(t, executor, StateSuspended)

	var seen []string

	hook := BeforeResume(func(_ context.Context, ectx *models.ExecutionContext) {
		assert.Equal(t, executor.RunID(), ectx.RunID)
		seen = append(seen, rec.Events()...)
	})

	require.NoError(t, executor.JumpToNode(context.Background(), "c", hook))
	waitEnded(t, executor)

	assert.Contains(t, seen, "skip:b")
	assert.NotContains(t, seen, "c")
	assert.Equal(t, 1, c.Executions())
}

func TestExecuteFrom_BeforeResume(t *testing.T) {
	rec := testutil.NewRecorder()
	graph := testutil.NewGraph("from-resume").
		Add(testutil.NewStep("a", rec), testutil.NewStep("b", rec)).
		Chain("a", "b").
		Build(t)

	executor, _ := newTestExecutor()
	calls := 0

	err := executor.ExecuteFrom(context.Background(), graph, "b", BeforeResume(func(context.Context, *models.ExecutionContext) {
		calls++
	}))
	require.NoError(t, err)
	waitEnded(t, executor)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rec.Count("b"))
	assert.Zero(t, rec.Count("a"))
}
