package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/storyflow/pkg/eventbus"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/presenter"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// RunStatus is the observable state of a run session.
type RunStatus struct {
	ID        string             `json:"id"`
	GraphID   string             `json:"graph_id"`
	State     workflow.State     `json:"state"`
	Current   string             `json:"current,omitempty"`
	Sequence  []string           `json:"sequence"`
	Prompts   []presenter.Prompt `json:"prompts"`
	StartedAt time.Time          `json:"started_at"`
}

// run is one executor driving one graph instance. Players answer its
// prompts through the queue.
type run struct {
	id        string
	graph     *models.Graph
	executor  *workflow.Executor
	prompts   *presenter.Queue
	startedAt time.Time
}

func (r *run) status() RunStatus {
	return RunStatus{
		ID:        r.id,
		GraphID:   r.graph.ID(),
		State:     r.executor.State(),
		Current:   r.executor.Current(),
		Sequence:  r.executor.Sequence(),
		Prompts:   r.prompts.Pending(),
		StartedAt: r.startedAt,
	}
}

type RunsOption func(*Runs)

// WithEventPublisher publishes the lifecycle events of every run.
func WithEventPublisher(publisher eventbus.EventPublisher) RunsOption {
	return func(r *Runs) {
		r.publisher = publisher
	}
}

// WithTracer traces every run.
func WithTracer(tracer trace.Tracer) RunsOption {
	return func(r *Runs) {
		r.tracer = tracer
	}
}

// WithAsyncTimeout bounds how long a run waits on an async node.
func WithAsyncTimeout(timeout time.Duration) RunsOption {
	return func(r *Runs) {
		r.asyncTimeout = timeout
	}
}

// Runs manages the run sessions started through the control API.
type Runs struct {
	graphs       *Graphs
	saves        *savegame.Service
	publisher    eventbus.EventPublisher
	tracer       trace.Tracer
	asyncTimeout time.Duration
	logger       *slog.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

func NewRuns(graphs *Graphs, saves *savegame.Service, logger *slog.Logger, opts ...RunsOption) *Runs {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runs{
		graphs: graphs,
		saves:  saves,
		logger: logger.With("module", "runs"),
		runs:   make(map[string]*run),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// HealthCheck checks the save store.
func (r *Runs) HealthCheck(ctx context.Context) (string, bool) {
	if r.saves == nil {
		return "Save service not initialized", false
	}

	return r.saves.HealthCheck(ctx)
}

// Start runs a fresh instance of graphID, from fromNode when it is set.
func (r *Runs) Start(ctx context.Context, graphID, fromNode string) (*RunStatus, error) {
	graph, err := r.graphs.Build(ctx, graphID)
	if err != nil {
		return nil, err
	}

	session := r.newRun(graph)
	runCtx := context.WithoutCancel(ctx)

	if fromNode != "" {
		err = session.executor.ExecuteFrom(runCtx, graph, fromNode)
	} else {
		err = session.executor.Execute(runCtx, graph)
	}

	if err != nil {
		return nil, err
	}

	return r.track(ctx, session), nil
}

// Load resumes slot of graphID. With runID set the slot is loaded into that
// run; otherwise a new run starts at the saved node.
func (r *Runs) Load(ctx context.Context, graphID, slot, runID string) (*RunStatus, error) {
	if runID != "" {
		session, err := r.get(runID)
		if err != nil {
			return nil, err
		}

		if session.graph.ID() != graphID {
			return nil, NewValidationError("load_save", "graph_mismatch",
				fmt.Sprintf("run %s plays graph %s, not %s", runID, session.graph.ID(), graphID), ErrInvalidRequest)
		}

		_, err = r.saves.Load(context.WithoutCancel(ctx), slot, session.executor, session.graph)
		if err != nil {
			return nil, err
		}

		status := session.status()

		return &status, nil
	}

	graph, err := r.graphs.Build(ctx, graphID)
	if err != nil {
		return nil, err
	}

	session := r.newRun(graph)

	_, err = r.saves.Load(context.WithoutCancel(ctx), slot, session.executor, graph)
	if err != nil {
		return nil, err
	}

	return r.track(ctx, session), nil
}

// Get returns the status of runID.
func (r *Runs) Get(runID string) (*RunStatus, error) {
	session, err := r.get(runID)
	if err != nil {
		return nil, err
	}

	status := session.status()

	return &status, nil
}

// List returns every run, newest first.
func (r *Runs) List() []RunStatus {
	r.mu.RLock()
	statuses := make([]RunStatus, 0, len(r.runs))
	for _, session := range r.runs {
		statuses = append(statuses, session.status())
	}
	r.mu.RUnlock()

	slices.SortFunc(statuses, func(a, b RunStatus) int {
		return cmp.Compare(b.StartedAt.UnixNano(), a.StartedAt.UnixNano())
	})

	return statuses
}

func (r *Runs) Pause(runID string) error {
	return r.control(runID, (*workflow.Executor).Pause)
}

func (r *Runs) Continue(runID string) error {
	return r.control(runID, (*workflow.Executor).Continue)
}

func (r *Runs) Stop(runID string) error {
	return r.control(runID, (*workflow.Executor).Stop)
}

// Jump moves runID to nodeID.
func (r *Runs) Jump(ctx context.Context, runID, nodeID string) error {
	session, err := r.get(runID)
	if err != nil {
		return err
	}

	return session.executor.JumpToNode(context.WithoutCancel(ctx), nodeID)
}

// Advance acknowledges the dialogue line nodeID shows in runID.
func (r *Runs) Advance(runID, nodeID string) error {
	session, err := r.get(runID)
	if err != nil {
		return err
	}

	return session.prompts.Advance(nodeID)
}

// Choose answers the choice nodeID shows in runID.
func (r *Runs) Choose(runID, nodeID string, index int) error {
	session, err := r.get(runID)
	if err != nil {
		return err
	}

	return session.prompts.Choose(nodeID, index)
}

// Save stores runID into slot.
func (r *Runs) Save(ctx context.Context, runID, slot string) (*models.Snapshot, error) {
	session, err := r.get(runID)
	if err != nil {
		return nil, err
	}

	return r.saves.Save(ctx, slot, session.executor)
}

// Saves lists the slots of graphID, newest first.
func (r *Runs) Saves(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	return r.saves.List(ctx, graphID)
}

// DeleteSave removes slot of graphID.
func (r *Runs) DeleteSave(ctx context.Context, graphID, slot string) error {
	return r.saves.Delete(ctx, graphID, slot)
}

// Shutdown stops every active run and waits for them to end.
func (r *Runs) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*run, 0, len(r.runs))
	for _, session := range r.runs {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	for _, session := range sessions {
		if session.executor.Stop() != nil {
			continue
		}

		err := session.executor.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to stop run %s: %w", session.id, err)
		}
	}

	return nil
}

func (r *Runs) newRun(graph *models.Graph) *run {
	prompts := presenter.NewQueue()
	saver := savegame.NewSaver(r.saves)

	opts := []workflow.Option{
		workflow.WithLogger(r.logger),
		workflow.WithPresenter(prompts),
		workflow.WithSaver(saver),
	}

	if r.publisher != nil {
		opts = append(opts, workflow.WithObserver(workflow.NewBusObserver(r.publisher, r.logger)))
	}

	if r.tracer != nil {
		opts = append(opts, workflow.WithTracer(r.tracer))
	}

	if r.asyncTimeout > 0 {
		opts = append(opts, workflow.WithAsyncTimeout(r.asyncTimeout))
	}

	executor := workflow.NewExecutor(opts...)
	saver.Bind(executor)

	return &run{
		graph:     graph,
		executor:  executor,
		prompts:   prompts,
		startedAt: time.Now().UTC(),
	}
}

func (r *Runs) track(ctx context.Context, session *run) *RunStatus {
	session.id = session.executor.RunID()

	r.mu.Lock()
	r.runs[session.id] = session
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "Run started", "run_id", session.id, "graph_id", session.graph.ID())

	status := session.status()

	return &status
}

func (r *Runs) get(runID string) (*run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return session, nil
}

func (r *Runs) control(runID string, action func(*workflow.Executor) error) error {
	session, err := r.get(runID)
	if err != nil {
		return err
	}

	return action(session.executor)
}
