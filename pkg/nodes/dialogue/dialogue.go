// Package dialogue provides the dialogue and choice nodes that talk to the player.
package dialogue

import (
	"context"
	"fmt"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/nodes"
	"github.com/dukex/storyflow/pkg/template"
)

const TypeDialogue = "dialogue"

// DialogueNode shows one line of text and waits until the presenter
// acknowledges it.
type DialogueNode struct {
	id        string
	character string
	text      string

	task nodes.Task
}

// NewDialogueNode creates a dialogue node.
func NewDialogueNode(id string, config map[string]any) (*DialogueNode, error) {
	text, err := nodes.RequiredString(config, "text")
	if err != nil {
		return nil, err
	}

	character, _ := nodes.String(config, "character")

	return &DialogueNode{
		id:        id,
		character: character,
		text:      text,
	}, nil
}

func (n *DialogueNode) ID() string {
	return n.id
}

func (n *DialogueNode) Type() string {
	return TypeDialogue
}

func (n *DialogueNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

func (n *DialogueNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return outputs
}

// Execute renders the line and hands it to the presenter. Completion is
// signalled through Done.
func (n *DialogueNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	text, err := template.TextWithContext(n.text, ectx)
	if err != nil {
		return fmt.Errorf("failed to render dialogue text: %w", err)
	}

	line := models.DialogueLine{NodeID: n.id, Character: n.character, Text: text}
	logger := ectx.NodeLogger(n)

	if ectx.Presenter == nil {
		logger.InfoContext(ctx, "Dialogue", "character", line.Character, "text", line.Text)
		n.task.Complete()

		return nil
	}

	n.task.Start(ctx, func(ctx context.Context) {
		err := ectx.Presenter.ShowDialogue(ctx, line)
		if err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "Presenter failed to show dialogue", "error", err)
		}
	})

	return nil
}

func (n *DialogueNode) Done() <-chan struct{} {
	return n.task.Done()
}

// SkipWait completes the line without waiting for the player.
func (n *DialogueNode) SkipWait(context.Context, *models.ExecutionContext) {
	n.task.Stop()
}

func (n *DialogueNode) StopTask() {
	n.task.Stop()
}
