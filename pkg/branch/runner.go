// Package branch runs the nested chains owned by control nodes as a fork-join.
package branch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Context is created for one Run invocation and destroyed on join.
type Context struct {
	ID      string
	OwnerID string

	cancel  context.CancelFunc
	mu      sync.Mutex
	running []string
}

// Cancel aborts every chain of the invocation between node invocations.
func (c *Context) Cancel() {
	c.cancel()
}

// Running returns the start node ids of the chains still in flight.
func (c *Context) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	running := make([]string, len(c.running))
	copy(running, c.running)

	return running
}

func (c *Context) finish(startID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, id := range c.running {
		if id == startID {
			c.running = append(c.running[:i], c.running[i+1:]...)

			return
		}
	}
}

// Runner forks chains on goroutines and joins them.
type Runner struct {
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*Context
}

// NewRunner creates a branch runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		logger: logger.With("module", "branch_runner"),
		active: make(map[string]*Context),
	}
}

// Run starts one chain per connected chain-start node of each port of
// ownerID and blocks until all chains finish. When the invocation is
// cancelled through Cancel the join still succeeds; when the parent ctx is
// cancelled its error is returned.
func (r *Runner) Run(ctx context.Context, ectx *models.ExecutionContext, ownerID string, ports ...string) error {
	if ectx == nil || ectx.Graph == nil {
		return errors.New("branch run requires an execution context with a graph")
	}

	starts := ectx.Graph.Successors(ownerID, ports...)
	if len(starts) == 0 {
		r.logger.DebugContext(ctx, "No chains connected", "owner_id", ownerID, "ports", ports)

		return nil
	}

	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	bctx := &Context{
		ID:      "branch-" + uuid.New().String()[:8],
		OwnerID: ownerID,
		cancel:  cancel,
	}

	for _, start := range starts {
		bctx.running = append(bctx.running, start.ID())
	}

	r.register(bctx)
	defer r.unregister(bctx)

	logger := r.logger.With("branch_id", bctx.ID, "owner_id", ownerID, "run_id", ectx.RunID)
	logger.DebugContext(ctx, "Forking chains", "chains", len(starts))

	eg, egCtx := errgroup.WithContext(branchCtx)

	for _, start := range starts {
		eg.Go(func() error {
			defer bctx.finish(start.ID())

			return r.walk(egCtx, ectx, start, logger)
		})
	}

	err := eg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("branch %s of %s: %w", bctx.ID, ownerID, err)
	}

	logger.DebugContext(ctx, "Chains joined")

	return nil
}

// walk runs one chain sequentially, following exit connections until the
// chain ends, a node is revisited or ctx is cancelled.
func (r *Runner) walk(ctx context.Context, ectx *models.ExecutionContext, start models.Interactive, logger *slog.Logger) error {
	visited := make(map[string]struct{})

	for node := start; node != nil; {
		err := ctx.Err()
		if err != nil {
			return err
		}

		if _, seen := visited[node.ID()]; seen {
			logger.WarnContext(ctx, "Chain revisits a node, ending chain", "node_id", node.ID())

			return nil
		}

		visited[node.ID()] = struct{}{}

		err = node.Execute(ctx, ectx)
		if errors.Is(err, models.ErrExit) {
			logger.InfoContext(ctx, "Exit reached inside chain", "node_id", node.ID())

			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logger.ErrorContext(ctx, "Chain node failed", "node_id", node.ID(), "error", err)
		}

		if async, ok := node.(models.AsyncCapable); ok {
			err := await(ctx, node, async)
			if err != nil {
				return err
			}
		}

		next, ok := ectx.Graph.Next(node.ID())
		if !ok {
			return nil
		}

		node = next
	}

	return nil
}

func await(ctx context.Context, node models.Node, async models.AsyncCapable) error {
	done := async.Done()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if stoppable, ok := node.(models.Stoppable); ok {
			stoppable.StopTask()
		}

		return ctx.Err()
	}
}

// Cancel aborts the in-flight invocations owned by ownerID. It reports
// whether any invocation was found.
func (r *Runner) Cancel(ownerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false

	for _, bctx := range r.active {
		if bctx.OwnerID == ownerID {
			bctx.Cancel()

			found = true
		}
	}

	return found
}

// Active returns the invocations that have not joined yet.
func (r *Runner) Active() []*Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]*Context, 0, len(r.active))
	for _, bctx := range r.active {
		active = append(active, bctx)
	}

	return active
}

func (r *Runner) register(bctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active[bctx.ID] = bctx
}

func (r *Runner) unregister(bctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.active, bctx.ID)
}
