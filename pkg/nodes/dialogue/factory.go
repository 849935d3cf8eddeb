package dialogue

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// DialogueNodeFactory creates DialogueNode instances.
type DialogueNodeFactory struct{}

// Create creates a new DialogueNode instance.
func (f *DialogueNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewDialogueNode(id, config)
}

// ID returns the factory ID.
func (f *DialogueNodeFactory) ID() string {
	return TypeDialogue
}

// Name returns the factory name.
func (f *DialogueNodeFactory) Name() string {
	return "Dialogue"
}

// Description returns the factory description.
func (f *DialogueNodeFactory) Description() string {
	return "Shows a line of dialogue and waits until the player acknowledges it."
}

// Schema returns the JSON schema for Dialogue node configuration.
func (f *DialogueNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"character": map[string]any{
				"type":        "string",
				"description": "Name of the speaking character",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Line to show. Supports templating.",
				"examples": []string{
					`Welcome back, {{.vars.player_name}}.`,
					`You have {{.vars.coins}} coins left.`,
				},
			},
		},
		"required": []string{"text"},
	}
}

// NewDialogueNodeFactory creates a new factory instance.
func NewDialogueNodeFactory() protocol.NodeFactory {
	return &DialogueNodeFactory{}
}

// ChoiceNodeFactory creates ChoiceNode instances.
type ChoiceNodeFactory struct{}

// Create creates a new ChoiceNode instance.
func (f *ChoiceNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewChoiceNode(id, config)
}

// ID returns the factory ID.
func (f *ChoiceNodeFactory) ID() string {
	return TypeChoice
}

// Name returns the factory name.
func (f *ChoiceNodeFactory) Name() string {
	return "Choice"
}

// Description returns the factory description.
func (f *ChoiceNodeFactory) Description() string {
	return "Presents variants to the player and exposes the picked index on the selected port. Pair it with a switch node to branch."
}

// Schema returns the JSON schema for Choice node configuration.
func (f *ChoiceNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Optional prompt shown above the variants",
			},
			"variants": map[string]any{
				"type":        "array",
				"minItems":    1,
				"items":       map[string]any{"type": "string"},
				"description": "Variants the player picks from. Supports templating.",
			},
		},
		"required": []string{"variants"},
		"examples": []map[string]any{
			{
				"text":     "What do you answer?",
				"variants": []string{"Yes", "No", "Maybe later"},
			},
		},
	}
}

// NewChoiceNodeFactory creates a new factory instance.
func NewChoiceNodeFactory() protocol.NodeFactory {
	return &ChoiceNodeFactory{}
}
