// Package wait provides a node that pauses the story for a fixed duration.
package wait

import (
	"context"
	"errors"
	"time"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
)

const TypeWait = "wait"

// WaitNode completes after its configured duration.
type WaitNode struct {
	id       string
	duration time.Duration

	task nodes.Task
}

// NewWaitNode creates a wait node from a "seconds" field.
func NewWaitNode(id string, config map[string]any) (*WaitNode, error) {
	seconds, ok, err := nodes.Float(config, "seconds")
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errors.New("missing required field 'seconds'")
	}

	if seconds < 0 {
		return nil, errors.New("field 'seconds' must not be negative")
	}

	return &WaitNode{
		id:       id,
		duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}

func (n *WaitNode) ID() string {
	return n.id
}

func (n *WaitNode) Type() string {
	return TypeWait
}

// Duration returns how long the node waits.
func (n *WaitNode) Duration() time.Duration {
	return n.duration
}

func (n *WaitNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

func (n *WaitNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return outputs
}

// Execute arms the timer.
func (n *WaitNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	ectx.NodeLogger(n).DebugContext(ctx, "Waiting", "duration", n.duration)

	n.task.Start(ctx, func(ctx context.Context) {
		timer := time.NewTimer(n.duration)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	})

	return nil
}

func (n *WaitNode) Done() <-chan struct{} {
	return n.task.Done()
}

// SkipWait completes the wait immediately.
func (n *WaitNode) SkipWait(context.Context, *models.ExecutionContext) {
	n.task.Stop()
}

func (n *WaitNode) StopTask() {
	n.task.Stop()
}
