package models

import (
	"context"
	"log/slog"

	"github.com/dukex/storyflow/pkg/variables"
)

// BranchRunner forks the chains attached to a control node's branch ports
// and blocks until all of them complete.
type BranchRunner interface {
	Run(ctx context.Context, ectx *ExecutionContext, ownerID string, ports ...string) error
	Cancel(ownerID string) bool
}

// DialogueLine is a rendered line handed to the presenter.
type DialogueLine struct {
	NodeID    string `json:"node_id"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text"`
}

// ChoicePrompt lists the variants a player can pick from.
type ChoicePrompt struct {
	NodeID   string   `json:"node_id"`
	Text     string   `json:"text,omitempty"`
	Variants []string `json:"variants"`
}

// Presenter is the presentation collaborator. Both calls block until the
// player acknowledges or ctx is cancelled.
type Presenter interface {
	ShowDialogue(ctx context.Context, line DialogueLine) error
	ShowChoice(ctx context.Context, prompt ChoicePrompt) (int, error)
}

// Saver persists the state of the running graph into a named slot.
type Saver interface {
	Save(ctx context.Context, slot string) error
}

// ExecutionContext carries the collaborators a node may use while it runs.
// It is built once per run and passed explicitly to every Execute call.
type ExecutionContext struct {
	RunID     string
	Graph     *Graph
	Variables *variables.Store
	Branches  BranchRunner
	Presenter Presenter
	Saver     Saver
	Logger    *slog.Logger
}

// InputValue pulls the value flowing into nodeID's input port from the
// ValueProvider connected to it.
func (e *ExecutionContext) InputValue(nodeID, port string) (any, bool) {
	if e == nil || e.Graph == nil {
		return nil, false
	}

	for _, connection := range e.Graph.ConnectionsTo(MakePortID(nodeID, port)) {
		source, err := e.Graph.NodeByID(connection.SourceNodeID())
		if err != nil {
			continue
		}

		provider, ok := source.(ValueProvider)
		if !ok {
			continue
		}

		_, sourcePort, _ := ParsePortID(connection.SourcePort)

		return provider.GetValue(e, sourcePort), true
	}

	return nil, false
}

// NodeLogger returns the run logger annotated with node.
func (e *ExecutionContext) NodeLogger(node Node) *slog.Logger {
	logger := slog.Default()
	if e != nil && e.Logger != nil {
		logger = e.Logger
	}

	return logger.With("node_id", node.ID(), "node_type", node.Type())
}
