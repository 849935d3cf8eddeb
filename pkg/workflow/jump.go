package workflow

import (
	"context"
	"fmt"

	"github.com/dukex/storyflow/pkg/events"
	"github.com/dukex/storyflow/pkg/models"
)

// JumpOption tunes a single jump or ExecuteFrom call.
type JumpOption func(*jumpConfig)

type jumpConfig struct {
	beforeResume []func(ctx context.Context, ectx *models.ExecutionContext)
}

// BeforeResume runs fn once the nodes before the target are short-circuited
// and before the target executes.
func BeforeResume(fn func(ctx context.Context, ectx *models.ExecutionContext)) JumpOption {
	return func(c *jumpConfig) {
		c.beforeResume = append(c.beforeResume, fn)
	}
}

func newJumpConfig(opts []JumpOption) *jumpConfig {
	config := &jumpConfig{}
	for _, opt := range opts {
		opt(config)
	}

	return config
}

func (c *jumpConfig) resume(ctx context.Context, ectx *models.ExecutionContext) {
	for _, fn := range c.beforeResume {
		fn(ctx, ectx)
	}
}

// JumpToNode resumes the running graph at nodeID. The graph is
// re-linearized; skippable nodes before the target are dropped and
// non-skippable ones have their side effect committed through SkipWait
// once before being dropped. The in-flight loop is replaced without ending
// the run. An unknown target leaves the run untouched.
//
// Once a run has ended, JumpToNode starts a fresh run of the same graph at
// nodeID. An executor that never ran has no graph and returns ErrNotRunning.
func (e *Executor) JumpToNode(ctx context.Context, nodeID string, opts ...JumpOption) error {
	config := newJumpConfig(opts)

	e.mu.Lock()
	if !e.activeLocked() {
		graph := e.graph
		e.mu.Unlock()

		if graph == nil {
			return ErrNotRunning
		}

		return e.start(ctx, graph, nodeID, config)
	}

	graph := e.graph
	e.mu.Unlock()

	linearization := e.linearizer.Linearize(graph)

	index := linearization.Index(nodeID)
	if index < 0 {
		e.logger.WarnContext(ctx, "Jump target not on the main sequence", "node_id", nodeID, "graph_id", graph.ID())

		return fmt.Errorf("%w: %s", ErrJumpTargetNotFound, nodeID)
	}

	e.mu.Lock()
	if !e.activeLocked() || e.graph != graph {
		e.mu.Unlock()

		return ErrNotRunning
	}

	// Supersede the live loop so it neither claims another node nor ends the run.
	e.generation++
	cancel := e.loopCancel
	loopDone := e.loopDone
	ectx := e.ectx
	runID := e.runID
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if loopDone != nil {
		select {
		case <-loopDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	shortCircuited := e.shortCircuit(ctx, ectx, linearization.Sequence[:index])
	sequence := linearization.Sequence[index:]

	config.resume(ctx, ectx)

	e.logger.InfoContext(ctx, "Jumping",
		"run_id", runID,
		"node_id", nodeID,
		"short_circuited", shortCircuited,
	)

	jumped := &events.RunJumped{
		BaseEvent:      events.NewBaseEvent(events.RunJumpedEvent, graph.ID(), runID),
		TargetNodeID:   nodeID,
		ShortCircuited: shortCircuited,
		Sequence:       linearization.IDs()[index:],
	}

	e.notify(context.WithoutCancel(ctx), jumped)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return ErrNotRunning
	}

	e.launchLocked(NewQueue(sequence))

	return nil
}

// shortCircuit commits the side effects of the non-skippable nodes among
// skipped and returns their ids.
func (e *Executor) shortCircuit(ctx context.Context, ectx *models.ExecutionContext, skipped []models.Interactive) []string {
	var committed []string

	for _, node := range skipped {
		if models.CanSkip(node) {
			continue
		}

		if circuit, ok := node.(models.ShortCircuiter); ok {
			circuit.SkipWait(ctx, ectx)
		}

		committed = append(committed, node.ID())
	}

	return committed
}
