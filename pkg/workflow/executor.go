// Package workflow linearizes graphs and steps through the main sequence.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/storyflow/pkg/branch"
	"github.com/dukex/storyflow/pkg/events"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the scheduler state of an executor.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateSuspended State = "suspended" // Awaiting an async node
	StateEnded     State = "ended"
)

var (
	ErrAlreadyRunning     = errors.New("executor is already running")
	ErrNotRunning         = errors.New("executor is not running")
	ErrJumpTargetNotFound = errors.New("jump target not found in main sequence")
	ErrNilGraph           = errors.New("graph is required")
)

// Option configures an Executor.
type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithObserver registers observers notified synchronously, in registration order.
func WithObserver(observers ...Observer) Option {
	return func(e *Executor) {
		e.observers = append(e.observers, observers...)
	}
}

func WithPresenter(presenter models.Presenter) Option {
	return func(e *Executor) {
		e.presenter = presenter
	}
}

func WithSaver(saver models.Saver) Option {
	return func(e *Executor) {
		e.saver = saver
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithAsyncTimeout bounds how long the scheduler awaits an async node. On
// expiry the stall is logged and the run advances. Zero waits forever.
func WithAsyncTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.asyncTimeout = timeout
	}
}

// Executor runs one graph at a time. Main-sequence nodes run strictly one at
// a time on the executor goroutine.
type Executor struct {
	logger       *slog.Logger
	linearizer   *Linearizer
	branches     *branch.Runner
	observers    []Observer
	presenter    models.Presenter
	saver        models.Saver
	tracer       trace.Tracer
	asyncTimeout time.Duration

	mu         sync.Mutex
	state      State
	paused     bool
	resume     chan struct{}
	graph      *models.Graph
	ectx       *models.ExecutionContext
	queue      *Queue
	current    string
	runID      string
	runCtx     context.Context
	runCancel  context.CancelFunc
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	generation int
	ended      bool
	done       chan struct{}
	executed   int
	startedAt  time.Time
}

// NewExecutor creates an idle executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger: slog.Default(),
		state:  StateIdle,
		tracer: otelhelper.Noop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("module", "executor")
	e.linearizer = NewLinearizer(e.logger)
	e.branches = branch.NewRunner(e.logger)

	return e
}

// Execute starts running graph from the head of its main sequence. It
// returns once the run is started; use Wait to block until it ends.
func (e *Executor) Execute(ctx context.Context, graph *models.Graph) error {
	return e.start(ctx, graph, "", nil)
}

// ExecuteFrom starts running graph at nodeID, short-circuiting the nodes
// before it the same way JumpToNode does.
func (e *Executor) ExecuteFrom(ctx context.Context, graph *models.Graph, nodeID string, opts ...JumpOption) error {
	return e.start(ctx, graph, nodeID, newJumpConfig(opts))
}

func (e *Executor) start(ctx context.Context, graph *models.Graph, startAt string, config *jumpConfig) error {
	if graph == nil {
		return ErrNilGraph
	}

	linearization := e.linearizer.Linearize(graph)

	sequence := linearization.Sequence

	if startAt != "" {
		index := linearization.Index(startAt)
		if index < 0 {
			return fmt.Errorf("%w: %s", ErrJumpTargetNotFound, startAt)
		}

		sequence = sequence[index:]
	}

	e.mu.Lock()

	if e.state != StateIdle && e.state != StateEnded {
		e.mu.Unlock()

		return ErrAlreadyRunning
	}

	runID := generateRunID()
	logger := e.logger.With("run_id", runID, "graph_id", graph.ID())

	e.runCtx, e.runCancel = context.WithCancel(ctx)
	e.graph = graph
	e.runID = runID
	e.ectx = &models.ExecutionContext{
		RunID:     runID,
		Graph:     graph,
		Variables: graph.Variables(),
		Branches:  e.branches,
		Presenter: e.presenter,
		Saver:     e.saver,
		Logger:    logger,
	}
	e.state = StateRunning
	e.paused = false
	e.resume = nil
	e.ended = false
	e.done = make(chan struct{})
	e.executed = 0
	e.current = ""
	e.startedAt = time.Now()
	ectx := e.ectx

	e.mu.Unlock()

	logger.InfoContext(ctx, "Starting run", "sequence", linearization.IDs(), "start_at", startAt)

	e.notify(ctx, &events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, graph.ID(), runID),
		GraphName: graph.Name(),
		Sequence:  linearization.IDs(),
		Dropped:   linearization.Dropped,
		StartAt:   startAt,
	})

	if startAt != "" {
		e.shortCircuit(ctx, ectx, linearization.Sequence[:linearization.Index(startAt)])
	}

	if config != nil {
		config.resume(ctx, ectx)
	}

	e.mu.Lock()
	e.launchLocked(NewQueue(sequence))
	e.mu.Unlock()

	return nil
}

// launchLocked starts a stepping loop over queue. e.mu must be held.
func (e *Executor) launchLocked(queue *Queue) {
	e.generation++
	e.queue = queue

	loopCtx, cancel := context.WithCancel(e.runCtx)
	e.loopCancel = cancel
	e.loopDone = make(chan struct{})

	go e.loop(loopCtx, queue, e.generation, e.loopDone)
}

// loop steps through queue until it ends, the run is stopped or a jump
// replaces it.
func (e *Executor) loop(ctx context.Context, queue *Queue, generation int, done chan struct{}) {
	defer close(done)

	runCtx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.run",
		attribute.String(otelhelper.RunIDKey, e.RunID()),
		attribute.String(otelhelper.GraphIDKey, e.Graph().ID()),
		attribute.Int("storyflow.run.generation", generation),
	)
	defer span.End()

	for {
		if !e.waitWhilePaused(ctx) {
			e.finish(generation, events.EndReasonStopped)

			return
		}

		node, ok := e.claim(ctx, queue, generation)
		if !ok {
			if queue.Ended() {
				e.finish(generation, events.EndReasonCompleted)
			} else {
				e.finish(generation, events.EndReasonStopped)
			}

			return
		}

		exit := e.step(runCtx, node, queue.Position(), generation)
		if exit {
			e.finish(generation, events.EndReasonExit)

			return
		}

		if ctx.Err() != nil {
			e.finish(generation, events.EndReasonStopped)

			return
		}

		queue.Advance()
	}
}

// claim returns the node at the cursor when the loop is still the live one.
func (e *Executor) claim(ctx context.Context, queue *Queue, generation int) (models.Interactive, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation || ctx.Err() != nil {
		return nil, false
	}

	node, ok := queue.Current()
	if !ok {
		return nil, false
	}

	e.current = node.ID()

	return node, true
}

// step runs one main-sequence node. It reports whether the node asked to
// end the run.
func (e *Executor) step(ctx context.Context, node models.Interactive, index int, generation int) bool {
	ectx := e.context()
	logger := ectx.NodeLogger(node).With("run_id", ectx.RunID)

	stepCtx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.step",
		attribute.String(otelhelper.RunIDKey, ectx.RunID),
		attribute.String(otelhelper.NodeIDKey, node.ID()),
		attribute.String(otelhelper.NodeTypeKey, node.Type()),
		attribute.Int(otelhelper.NodeIndexKey, index),
	)
	defer span.End()

	started := time.Now()
	advanced := &events.NodeAdvanced{
		BaseEvent: events.NewBaseEvent(events.NodeAdvancedEvent, ectx.Graph.ID(), ectx.RunID),
		NodeID:    node.ID(),
		NodeType:  node.Type(),
		Index:     index,
	}

	if !ectx.Graph.IsEnabled(node.ID()) {
		logger.DebugContext(stepCtx, "Node is disabled, skipping")

		advanced.Disabled = true
		e.advanced(stepCtx, generation, advanced)

		return false
	}

	logger.DebugContext(stepCtx, "Executing node")

	err := node.Execute(stepCtx, ectx)
	if errors.Is(err, models.ErrExit) {
		logger.InfoContext(stepCtx, "Exit node reached")

		return true
	}

	if err != nil && stepCtx.Err() == nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID()))
		logger.ErrorContext(stepCtx, "Node execution failed, continuing", "error", err)

		advanced.Error = err.Error()
	}

	if async, ok := node.(models.AsyncCapable); ok && stepCtx.Err() == nil {
		e.await(stepCtx, node, async, generation, logger)
	}

	if stepCtx.Err() != nil {
		return false
	}

	advanced.DurationMs = time.Since(started).Milliseconds()
	e.advanced(stepCtx, generation, advanced)

	return false
}

func (e *Executor) advanced(ctx context.Context, generation int, event *events.NodeAdvanced) {
	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()

		return
	}

	e.executed++
	e.mu.Unlock()

	e.notify(ctx, event)
}

// await suspends the loop until the async node signals completion.
func (e *Executor) await(ctx context.Context, node models.Node, async models.AsyncCapable, generation int, logger *slog.Logger) {
	done := async.Done()
	if done == nil {
		return
	}

	e.setSuspended(true)
	defer e.setSuspended(false)

	var timeout <-chan time.Time

	if e.asyncTimeout > 0 {
		timer := time.NewTimer(e.asyncTimeout)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-done:
	case <-timeout:
		logger.WarnContext(ctx, "Async node stalled, advancing", "timeout", e.asyncTimeout)
	case <-ctx.Done():
		e.mu.Lock()
		superseded := generation != e.generation
		e.mu.Unlock()

		// A jump drops the in-flight node without ending the run.
		if superseded {
			if stoppable, ok := node.(models.Stoppable); ok {
				stoppable.StopTask()
			}
		}
	}
}

func (e *Executor) setSuspended(suspended bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return
	}

	e.state = e.activeStateLocked(suspended)
}

func (e *Executor) activeStateLocked(suspended bool) State {
	switch {
	case e.paused:
		return StatePaused
	case suspended:
		return StateSuspended
	default:
		return StateRunning
	}
}

// waitWhilePaused blocks between nodes while the run is paused. It reports
// false when ctx ends first.
func (e *Executor) waitWhilePaused(ctx context.Context) bool {
	for {
		e.mu.Lock()
		paused := e.paused
		resume := e.resume
		e.mu.Unlock()

		if !paused {
			return ctx.Err() == nil
		}

		select {
		case <-resume:
		case <-ctx.Done():
			return false
		}
	}
}

// finish ends the run unless a jump superseded generation. Cleanup runs at
// most once per run.
func (e *Executor) finish(generation int, reason events.EndReason) {
	e.mu.Lock()
	if e.ended || generation != e.generation {
		e.mu.Unlock()

		return
	}

	e.ended = true
	e.state = StateEnded
	e.paused = false

	graph := e.graph
	runID := e.runID
	lastNode := e.current
	executed := e.executed
	startedAt := e.startedAt
	runCtx := e.runCtx
	cancel := e.runCancel
	done := e.done
	e.mu.Unlock()

	if runCtx.Err() != nil && reason == events.EndReasonCompleted {
		reason = events.EndReasonStopped
	}

	cancel()

	for _, node := range graph.Nodes() {
		if !models.IsAsync(node) {
			continue
		}

		if stoppable, ok := node.(models.Stoppable); ok {
			stoppable.StopTask()
		}
	}

	graph.Variables().ResetAll()

	for _, node := range graph.Nodes() {
		if resettable, ok := node.(models.Resettable); ok {
			resettable.Reset()
		}
	}

	ctx := context.WithoutCancel(runCtx)

	e.logger.InfoContext(ctx, "Run ended",
		"run_id", runID,
		"graph_id", graph.ID(),
		"reason", reason,
		"nodes_executed", executed,
	)

	e.notify(ctx, &events.RunEnded{
		BaseEvent:     events.NewBaseEvent(events.RunEndedEvent, graph.ID(), runID),
		Reason:        reason,
		LastNodeID:    lastNode,
		NodesExecuted: executed,
		DurationMs:    time.Since(startedAt).Milliseconds(),
	})

	close(done)
}

// Pause suspends stepping before the next main-sequence node. A node that
// is already running completes first.
func (e *Executor) Pause() error {
	e.mu.Lock()

	if !e.activeLocked() {
		e.mu.Unlock()

		return ErrNotRunning
	}

	if e.paused {
		e.mu.Unlock()

		return nil
	}

	e.paused = true
	e.resume = make(chan struct{})
	e.state = StatePaused
	event := &events.RunPaused{
		BaseEvent: events.NewBaseEvent(events.RunPausedEvent, e.graph.ID(), e.runID),
		NodeID:    e.current,
	}
	ctx := context.WithoutCancel(e.runCtx)
	e.mu.Unlock()

	e.notify(ctx, event)

	return nil
}

// Continue resumes a paused run.
func (e *Executor) Continue() error {
	e.mu.Lock()

	if !e.activeLocked() {
		e.mu.Unlock()

		return ErrNotRunning
	}

	if !e.paused {
		e.mu.Unlock()

		return nil
	}

	e.paused = false
	close(e.resume)
	e.state = StateRunning
	event := &events.RunResumed{
		BaseEvent: events.NewBaseEvent(events.RunResumedEvent, e.graph.ID(), e.runID),
		NodeID:    e.current,
	}
	ctx := context.WithoutCancel(e.runCtx)
	e.mu.Unlock()

	e.notify(ctx, event)

	return nil
}

// Stop ends the run. Pending branch chains and async nodes are cancelled
// and the end cleanup runs once.
func (e *Executor) Stop() error {
	e.mu.Lock()

	if !e.activeLocked() {
		e.mu.Unlock()

		return ErrNotRunning
	}

	cancel := e.runCancel
	e.mu.Unlock()

	cancel()

	return nil
}

// Wait blocks until the run ends or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done == nil {
		return ErrNotRunning
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the scheduler state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Current returns the id of the node at the cursor.
func (e *Executor) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current
}

// RunID returns the id of the current or last run.
func (e *Executor) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runID
}

// Graph returns the graph of the current or last run.
func (e *Executor) Graph() *models.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.graph
}

// Sequence returns the ids of the queue being stepped.
func (e *Executor) Sequence() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue == nil {
		return nil
	}

	return e.queue.IDs()
}

func (e *Executor) activeLocked() bool {
	return e.state != StateIdle && e.state != StateEnded
}

func (e *Executor) context() *models.ExecutionContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ectx
}

// generateRunID generates a unique run ID.
func generateRunID() string {
	return "run-" + uuid.New().String()[:8]
}
