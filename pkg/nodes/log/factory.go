package log

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
)

// LogNodeFactory creates LogNode instances.
type LogNodeFactory struct{}

// Create creates a new LogNode instance.
func (f *LogNodeFactory) Create(ctx context.Context, id string, config map[string]any) (models.Node, error) {
	return NewLogNode(id, config)
}

// ID returns the factory ID.
func (f *LogNodeFactory) ID() string {
	return TypeLog
}

// Name returns the factory name.
func (f *LogNodeFactory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *LogNodeFactory) Description() string {
	return "Writes a message to the run log at a chosen level (debug, info, warn, error). Supports templating against story variables."
}

// Schema returns the JSON schema for Log node configuration.
func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with story variables.",
				"examples": []string{
					"Entering chapter two",
					"Affection is now {{.vars.affection}}",
					"Run {{.run.id}} reached the ending",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
				"examples":    []string{"info", "warn", "error", "debug"},
			},
		},
		"required": []string{"message"},
		"examples": []map[string]any{
			{
				"message": "Player picked {{.vars.last_choice}}",
				"level":   "info",
			},
			{
				"message": "Trust dropped below zero",
				"level":   "warn",
			},
		},
	}
}

// NewLogNodeFactory creates a new factory instance.
func NewLogNodeFactory() protocol.NodeFactory {
	return &LogNodeFactory{}
}
