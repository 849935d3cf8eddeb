// Package loop provides a node that replays its branch chains a number of times.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
)

const (
	TypeLoop = "loop"

	OutputPortLoop  = "loop"
	OutputPortIndex = "index"
	InputPortCount  = "count"
)

// LoopNode runs the chains on its loop port count times, one iteration
// after the other. The current iteration is served on the index port.
type LoopNode struct {
	id    string
	count int

	index atomic.Int64
}

// NewLoopNode creates a loop node.
func NewLoopNode(id string, config map[string]any) (*LoopNode, error) {
	count, ok, err := nodes.Float(config, "count")
	if err != nil {
		return nil, err
	}

	if !ok {
		count = 1
	}

	if count < 0 {
		return nil, errors.New("field 'count' must not be negative")
	}

	return &LoopNode{id: id, count: int(count)}, nil
}

func (n *LoopNode) ID() string {
	return n.id
}

func (n *LoopNode) Type() string {
	return TypeLoop
}

func (n *LoopNode) BranchPorts() []string {
	return []string{OutputPortLoop}
}

// Execute runs the loop chains count times and stops early when ctx ends.
func (n *LoopNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	count, err := n.iterations(ectx)
	if err != nil {
		return err
	}

	logger := ectx.NodeLogger(n)

	for i := range count {
		n.index.Store(int64(i))

		logger.DebugContext(ctx, "Loop iteration", "index", i, "count", count)

		err := ectx.Branches.Run(ctx, ectx, n.id, OutputPortLoop)
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (n *LoopNode) iterations(ectx *models.ExecutionContext) (int, error) {
	value, ok := ectx.InputValue(n.id, InputPortCount)
	if !ok {
		return n.count, nil
	}

	count, found, err := nodes.Float(map[string]any{InputPortCount: value}, InputPortCount)
	if err != nil || !found || count < 0 {
		return 0, fmt.Errorf("invalid loop count %v", value)
	}

	return int(count), nil
}

// GetValue serves the current iteration on the index port.
func (n *LoopNode) GetValue(_ *models.ExecutionContext, port string) any {
	if port != OutputPortIndex {
		return nil
	}

	return n.index.Load()
}

// SkipWait cancels iterations still running.
func (n *LoopNode) SkipWait(ctx context.Context, ectx *models.ExecutionContext) {
	if ectx != nil && ectx.Branches != nil {
		ectx.Branches.Cancel(n.id)
	}
}

func (n *LoopNode) Reset() {
	n.index.Store(0)
}

func (n *LoopNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return append(inputs, models.NewInputPort(n.id, InputPortCount, "Number of iterations, overrides the configured count"))
}

func (n *LoopNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return append(outputs,
		models.NewBranchPort(n.id, OutputPortLoop, "Chains replayed on every iteration"),
		models.NewOutputPort(n.id, OutputPortIndex, "Zero-based index of the running iteration"),
	)
}
