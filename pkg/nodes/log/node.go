// Package log provides a logging node for tracing story progress.
package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/template"
)

const TypeLog = "log"

// LogLevel represents different logging levels.
type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

var logLevelName = map[LogLevel]string{
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
}

var slogLevel = map[string]slog.Level{
	logLevelName[Debug]: slog.LevelDebug,
	logLevelName[Info]:  slog.LevelInfo,
	logLevelName[Warn]:  slog.LevelWarn,
	logLevelName[Error]: slog.LevelError,
}

// LogNode writes a rendered message to the run logger.
type LogNode struct {
	id      string
	message string
	level   string
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	node := &LogNode{id: id, level: logLevelName[Info]}

	err := node.Validate(config)
	if err != nil {
		return nil, err
	}

	node.message, _ = config["message"].(string)

	if lvl, ok := config["level"].(string); ok {
		node.level = lvl
	}

	return node, nil
}

// ID returns the node ID.
func (n *LogNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *LogNode) Type() string {
	return TypeLog
}

// Execute renders the message and logs it at the configured level.
func (n *LogNode) Execute(ctx context.Context, ectx *models.ExecutionContext) error {
	message, err := template.TextWithContext(n.message, ectx)
	if err != nil {
		return fmt.Errorf("failed to render log message template: %w", err)
	}

	level, ok := slogLevel[n.level]
	if !ok {
		level = slog.LevelInfo
	}

	ectx.NodeLogger(n).Log(ctx, level, message)

	return nil
}

// InputPorts returns the input ports for the node.
func (n *LogNode) InputPorts() []models.InputPort {
	inputs, _ := models.FlowPorts(n.id)

	return inputs
}

// OutputPorts returns the output ports for the node.
func (n *LogNode) OutputPorts() []models.OutputPort {
	_, outputs := models.FlowPorts(n.id)

	return outputs
}

// Validate validates the node configuration.
func (n *LogNode) Validate(config map[string]any) error {
	if _, ok := config["message"].(string); !ok {
		return fmt.Errorf("missing required field 'message'")
	}

	if level, ok := config["level"].(string); ok {
		if _, valid := slogLevel[level]; !valid {
			return fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", level)
		}
	}

	return nil
}
