// Package testutil provides test graph builders and scripted nodes for testing.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/variables"
	"github.com/stretchr/testify/require"
)

// Recorder collects the events scripted nodes emit, in order.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]string, len(r.events))
	copy(events, r.events)

	return events
}

// Count returns how many times event was recorded.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0

	for _, e := range r.events {
		if e == event {
			count++
		}
	}

	return count
}

// Anchor is a plain start node exposing only an exit port.
type Anchor struct {
	id string
}

// NewAnchor creates an anchor node.
func NewAnchor(id string) *Anchor {
	return &Anchor{id: id}
}

func (a *Anchor) ID() string                     { return a.id }
func (a *Anchor) Type() string                   { return "start" }
func (a *Anchor) InputPorts() []models.InputPort { return nil }
func (a *Anchor) OutputPorts() []models.OutputPort {
	return []models.OutputPort{models.NewOutputPort(a.id, models.PortExit, "")}
}

// StepOption configures a scripted step.
type StepOption func(*Step)

// WithError makes Execute return err.
func WithError(err error) StepOption {
	return func(s *Step) {
		s.err = err
	}
}

// WithNonSkippable marks the step as not skippable on jump.
func WithNonSkippable() StepOption {
	return func(s *Step) {
		s.canSkip = false
	}
}

// WithDelay makes Execute sleep before returning.
func WithDelay(delay time.Duration) StepOption {
	return func(s *Step) {
		s.delay = delay
	}
}

// WithAction runs fn inside Execute after recording.
func WithAction(fn func(ctx context.Context, ectx *models.ExecutionContext) error) StepOption {
	return func(s *Step) {
		s.action = fn
	}
}

// Step is an interactive node that records its invocations.
type Step struct {
	id       string
	recorder *Recorder
	err      error
	canSkip  bool
	delay    time.Duration
	action   func(ctx context.Context, ectx *models.ExecutionContext) error

	mu         sync.Mutex
	executions int
}

// NewStep creates a scripted interactive node recording its id on Execute.
func NewStep(id string, recorder *Recorder, opts ...StepOption) *Step {
	step := &Step{id: id, recorder: recorder, canSkip: true}
	for _, opt := range opts {
		opt(step)
	}

	return step
}

func (s *Step) ID() string   { return s.id }
func (s *Step) Type() string { return "step" }

func (s *Step) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(s.id)

	return inputs
}

func (s *Step) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(s.id)

	return outputs
}

// Execute records the step id and returns the scripted error.
func (s *Step) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	s.mu.Lock()
	s.executions++
	s.mu.Unlock()

	s.recorder.Record(s.id)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.action != nil {
		err := s.action(ctx, ectx)
		if err != nil {
			return err
		}
	}

	return s.err
}

// Executions returns how many times Execute ran.
func (s *Step) Executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executions
}

// CanSkip reports whether the step may be dropped on jump.
func (s *Step) CanSkip() bool {
	return s.canSkip
}

// SkipWait records "skip:<id>".
func (s *Step) SkipWait(context.Context, *models.ExecutionContext) {
	s.recorder.Record("skip:" + s.id)
}

// Reset records "reset:<id>".
func (s *Step) Reset() {
	s.recorder.Record("reset:" + s.id)
}

// AsyncStep is a step whose completion is signalled by Complete or after a delay.
type AsyncStep struct {
	*Step

	autoComplete time.Duration

	doneMu sync.Mutex
	done   chan struct{}
}

// NewAsyncStep creates an async step. With autoComplete zero the test must call Complete.
func NewAsyncStep(id string, recorder *Recorder, autoComplete time.Duration, opts ...StepOption) *AsyncStep {
	return &AsyncStep{
		Step:         NewStep(id, recorder, opts...),
		autoComplete: autoComplete,
		done:         make(chan struct{}),
	}
}

func (s *AsyncStep) Type() string { return "async_step" }

// Execute starts the effect and arms completion.
func (s *AsyncStep) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	s.doneMu.Lock()
	select {
	case <-s.done:
		s.done = make(chan struct{})
	default:
	}
	s.doneMu.Unlock()

	err := s.Step.Execute(ctx, ectx)

	if s.autoComplete > 0 {
		time.AfterFunc(s.autoComplete, s.Complete)
	}

	return err
}

// Done returns the completion signal of the current effect.
func (s *AsyncStep) Done() <-chan struct{} {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()

	return s.done
}

// Complete finishes the current effect.
func (s *AsyncStep) Complete() {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// StopTask records "stop:<id>" and completes the effect.
func (s *AsyncStep) StopTask() {
	s.recorder.Record("stop:" + s.id)
	s.Complete()
}

// SkipWait records "skip:<id>" and completes the effect.
func (s *AsyncStep) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	s.Step.SkipWait(ctx, ectx)
	s.Complete()
}

// ControlStep owns branch ports and forks them through the branch runner.
type ControlStep struct {
	*Step

	ports []string
}

// NewControlStep creates a control node driving every chain on ports.
func NewControlStep(id string, recorder *Recorder, ports []string, opts ...StepOption) *ControlStep {
	return &ControlStep{Step: NewStep(id, recorder, opts...), ports: ports}
}

func (c *ControlStep) Type() string { return "control_step" }

func (c *ControlStep) OutputPorts() []models.OutputPort {
	outputs := c.Step.OutputPorts()
	for _, port := range c.ports {
		outputs = append(outputs, models.NewBranchPort(c.id, port, ""))
	}

	return outputs
}

// BranchPorts returns the branch port names.
func (c *ControlStep) BranchPorts() []string {
	return c.ports
}

// Execute records the id, then forks and joins the owned chains.
func (c *ControlStep) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	err := c.Step.Execute(ctx, ectx)
	if err != nil {
		return err
	}

	err = ectx.Branches.Run(ctx, ectx, c.id, c.ports...)
	c.recorder.Record("join:" + c.id)

	return err
}

// SkipWait cancels the in-flight chains.
func (c *ControlStep) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	c.Step.SkipWait(ctx, ectx)

	if ectx != nil && ectx.Branches != nil {
		ectx.Branches.Cancel(c.id)
	}
}

// GraphBuilder assembles graphs for tests.
type GraphBuilder struct {
	id          string
	nodes       []models.Node
	connections []models.Connection
	store       *variables.Store
}

// NewGraph starts a graph builder.
func NewGraph(id string) *GraphBuilder {
	return &GraphBuilder{id: id, store: variables.NewStore(nil)}
}

// Add appends nodes in authoring order.
func (b *GraphBuilder) Add(nodes ...models.Node) *GraphBuilder {
	b.nodes = append(b.nodes, nodes...)

	return b
}

// Connect links two port ids.
func (b *GraphBuilder) Connect(sourcePort, targetPort string) *GraphBuilder {
	b.connections = append(b.connections, models.Connection{SourcePort: sourcePort, TargetPort: targetPort})

	return b
}

// Chain links each node's exit to the next node's enter.
func (b *GraphBuilder) Chain(ids ...string) *GraphBuilder {
	for i := 1; i < len(ids); i++ {
		b.Connect(models.MakePortID(ids[i-1], models.PortExit), models.MakePortID(ids[i], models.PortEnter))
	}

	return b
}

// Variable declares a variable slot.
func (b *GraphBuilder) Variable(t *testing.T, name string, typ variables.Type, start any) *GraphBuilder {
	t.Helper()
	require.NoError(t, b.store.Declare(name, typ, start))

	return b
}

// Build validates the graph and fails the test on error.
func (b *GraphBuilder) Build(t *testing.T) *models.Graph {
	t.Helper()

	graph, err := models.NewGraph(b.id, b.id, b.nodes, b.connections, b.store)
	require.NoError(t, err)

	return graph
}
