// Package models defines core node-based graph models for narrative execution.
package models

import (
	"context"
	"errors"
)

// ErrExit is returned by a node's Execute to end the run it belongs to.
var ErrExit = errors.New("exit requested")

// NodeKind discriminates nodes by the capabilities they expose.
type NodeKind string

const (
	KindPlain       NodeKind = "plain"       // Data-only nodes (variables, comparisons, anchors)
	KindInteractive NodeKind = "interactive" // Main-line nodes with enter/exit ports
	KindAsync       NodeKind = "async"       // Interactive nodes that suspend until done
	KindControl     NodeKind = "control"     // Interactive nodes owning branch chains
)

// Node is the behaviour every graph vertex carries.
type Node interface {
	ID() string
	Type() string
	InputPorts() []InputPort
	OutputPorts() []OutputPort
}

// Interactive nodes sit on the main line and are invoked by the scheduler.
type Interactive interface {
	Node
	Execute(ctx context.Context, ectx *ExecutionContext) error
}

// AsyncCapable nodes only start their effect in Execute. The scheduler waits
// on Done before advancing.
type AsyncCapable interface {
	Done() <-chan struct{}
}

// BranchOwner is implemented by control nodes that drive nested chains.
type BranchOwner interface {
	BranchPorts() []string
}

// Skippable lets a node opt out of being dropped silently on jump.
type Skippable interface {
	CanSkip() bool
}

// ShortCircuiter commits a node's side effect without playing it.
type ShortCircuiter interface {
	SkipWait(ctx context.Context, ectx *ExecutionContext)
}

// ValueProvider serves values pulled through the node's output ports.
type ValueProvider interface {
	GetValue(ectx *ExecutionContext, port string) any
}

// Stateful nodes take part in save/load.
type Stateful interface {
	GetStateForSave() any
	SetStateFromSave(state any) error
	ResetSaveBehavior()
}

// Stoppable async nodes are told to drop pending work when a run ends.
type Stoppable interface {
	StopTask()
}

// Resettable nodes clear per-run flags (selections, counters) when a run ends.
type Resettable interface {
	Reset()
}

// KindOf derives the node kind from the traits it implements.
func KindOf(node Node) NodeKind {
	if _, ok := node.(Interactive); !ok {
		return KindPlain
	}

	if _, ok := node.(BranchOwner); ok {
		return KindControl
	}

	if _, ok := node.(AsyncCapable); ok {
		return KindAsync
	}

	return KindInteractive
}

// CanSkip reports whether node may be dropped during jump. Nodes that do not
// implement Skippable are skippable.
func CanSkip(node Node) bool {
	s, ok := node.(Skippable)
	if !ok {
		return true
	}

	return s.CanSkip()
}

// IsAsync reports whether the scheduler must await node after Execute.
func IsAsync(node Node) bool {
	_, ok := node.(AsyncCapable)

	return ok
}

// Connection connects two ports directly (fully normalized).
type Connection struct {
	ID         string `json:"id"`
	SourcePort string `json:"source_port" validate:"required"` // References Port.ID: "{node_id}:{port_name}"
	TargetPort string `json:"target_port" validate:"required"` // References Port.ID: "{node_id}:{port_name}"
}

// SourceNodeID returns the node owning the source port.
func (c Connection) SourceNodeID() string {
	nodeID, _, _ := ParsePortID(c.SourcePort)

	return nodeID
}

// TargetNodeID returns the node owning the target port.
func (c Connection) TargetNodeID() string {
	nodeID, _, _ := ParsePortID(c.TargetPort)

	return nodeID
}
