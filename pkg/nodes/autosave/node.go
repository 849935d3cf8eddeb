// Package autosave provides a node that saves the running story into a slot.
package autosave

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
)

const (
	TypeAutosave = "autosave"

	DefaultSlot = "autosave"
)

// AutosaveNode asks the run's Saver to persist the story and completes when
// the save is written.
type AutosaveNode struct {
	id   string
	slot string

	task nodes.Task
}

// NewAutosaveNode creates an autosave node.
func NewAutosaveNode(id string, config map[string]any) (*AutosaveNode, error) {
	slot, ok := nodes.String(config, "slot")
	if !ok || slot == "" {
		slot = DefaultSlot
	}

	return &AutosaveNode{id: id, slot: slot}, nil
}

func (n *AutosaveNode) ID() string {
	return n.id
}

func (n *AutosaveNode) Type() string {
	return TypeAutosave
}

// Slot returns the slot the node writes to.
func (n *AutosaveNode) Slot() string {
	return n.slot
}

func (n *AutosaveNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

func (n *AutosaveNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return outputs
}

// Execute starts the save.
func (n *AutosaveNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	logger := ectx.NodeLogger(n).With("slot", n.slot)

	if ectx.Saver == nil {
		logger.WarnContext(ctx, "No saver configured, autosave skipped")
		n.task.Complete()

		return nil
	}

	n.task.Start(ctx, func(ctx context.Context) {
		err := ectx.Saver.Save(ctx, n.slot)
		if err != nil {
			logger.ErrorContext(ctx, "Autosave failed", "error", err)

			return
		}

		logger.InfoContext(ctx, "Autosaved")
	})

	return nil
}

func (n *AutosaveNode) Done() <-chan struct{} {
	return n.task.Done()
}

func (n *AutosaveNode) StopTask() {
	n.task.Stop()
}
