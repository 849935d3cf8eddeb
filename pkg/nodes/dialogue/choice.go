package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
	"github.com/dukex/storyflow/pkg/template"
)

const (
	TypeChoice = "choice"

	OutputPortSelected = "selected"
	OutputPortVariant  = "variant"

	noSelection = -1
)

// ErrInvalidSelection is returned when the presenter picks a variant that does not exist.
var ErrInvalidSelection = errors.New("selection out of range")

// ChoiceNode presents variants and remembers which one the player picked.
// The selection is served on the selected and variant ports.
type ChoiceNode struct {
	id       string
	text     string
	variants []string

	task nodes.Task

	mu       sync.RWMutex
	selected int
	shown    []string
}

// NewChoiceNode creates a choice node.
func NewChoiceNode(id string, config map[string]any) (*ChoiceNode, error) {
	variants, err := nodes.Strings(config, "variants")
	if err != nil {
		return nil, err
	}

	if len(variants) == 0 {
		return nil, errors.New("missing required field 'variants'")
	}

	text, _ := nodes.String(config, "text")

	return &ChoiceNode{
		id:       id,
		text:     text,
		variants: variants,
		selected: noSelection,
	}, nil
}

func (n *ChoiceNode) ID() string {
	return n.id
}

func (n *ChoiceNode) Type() string {
	return TypeChoice
}

func (n *ChoiceNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

func (n *ChoiceNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return append(outputs,
		models.NewOutputPort(n.id, OutputPortSelected, "Index of the picked variant, -1 before a pick"),
		models.NewOutputPort(n.id, OutputPortVariant, "Text of the picked variant"),
	)
}

// Execute presents the variants. The node completes once the player picks one.
func (n *ChoiceNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	prompt := models.ChoicePrompt{NodeID: n.id, Variants: make([]string, len(n.variants))}

	text, err := template.TextWithContext(n.text, ectx)
	if err != nil {
		return fmt.Errorf("failed to render choice text: %w", err)
	}

	prompt.Text = text

	for i, variant := range n.variants {
		rendered, err := template.TextWithContext(variant, ectx)
		if err != nil {
			return fmt.Errorf("failed to render variant %d: %w", i, err)
		}

		prompt.Variants[i] = rendered
	}

	n.mu.Lock()
	n.shown = prompt.Variants
	n.mu.Unlock()

	logger := ectx.NodeLogger(n)

	if ectx.Presenter == nil {
		logger.WarnContext(ctx, "No presenter, picking the first variant")
		n.setSelected(0)
		n.task.Complete()

		return nil
	}

	n.task.Start(ctx, func(ctx context.Context) {
		index, err := ectx.Presenter.ShowChoice(ctx, prompt)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorContext(ctx, "Presenter failed to show choice", "error", err)
			}

			return
		}

		if index < 0 || index >= len(n.variants) {
			logger.ErrorContext(ctx, "Presenter picked an unknown variant", "index", index, "error", ErrInvalidSelection)

			return
		}

		logger.InfoContext(ctx, "Variant picked", "index", index, "variant", prompt.Variants[index])
		n.setSelected(index)
	})

	return nil
}

func (n *ChoiceNode) Done() <-chan struct{} {
	return n.task.Done()
}

func (n *ChoiceNode) StopTask() {
	n.task.Stop()
}

// Selected returns the picked variant index, or -1.
func (n *ChoiceNode) Selected() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.selected
}

func (n *ChoiceNode) setSelected(index int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.selected = index
}

// GetValue serves the selection on the selected and variant ports.
func (n *ChoiceNode) GetValue(_ *models.ExecutionContext, port string) any {
	n.mu.RLock()
	defer n.mu.RUnlock()

	switch port {
	case OutputPortSelected:
		return int64(n.selected)
	case OutputPortVariant:
		if n.selected == noSelection {
			return ""
		}

		if n.selected < len(n.shown) {
			return n.shown[n.selected]
		}

		return n.variants[n.selected]
	default:
		return nil
	}
}

// Reset forgets the selection at the end of a run.
func (n *ChoiceNode) Reset() {
	n.setSelected(noSelection)
}

func (n *ChoiceNode) GetStateForSave() any {
	return map[string]any{"selected": n.Selected()}
}

func (n *ChoiceNode) SetStateFromSave(state any) error {
	values, ok := state.(map[string]any)
	if !ok {
		return fmt.Errorf("choice %s: unexpected state %T", n.id, state)
	}

	selected, found, err := nodes.Float(values, "selected")
	if err != nil {
		return fmt.Errorf("choice %s: %w", n.id, err)
	}

	if !found {
		return nil
	}

	index := int(selected)
	if index != noSelection && (index < 0 || index >= len(n.variants)) {
		return fmt.Errorf("choice %s: %w: %d", n.id, ErrInvalidSelection, index)
	}

	n.setSelected(index)

	return nil
}

func (n *ChoiceNode) ResetSaveBehavior() {
	n.setSelected(noSelection)
}
