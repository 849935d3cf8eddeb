// Package events defines event types and structures for run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "storyflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	NodeAdvancedEvent EventType = "node.advanced"
	RunPausedEvent    EventType = "run.paused"
	RunResumedEvent   EventType = "run.resumed"
	RunJumpedEvent    EventType = "run.jumped"
	RunEndedEvent     EventType = "run.ended"
)

// EndReason tells why a run ended.
type EndReason string

const (
	EndReasonCompleted EndReason = "completed" // Queue exhausted
	EndReasonExit      EndReason = "exit"      // An exit node ran
	EndReasonStopped   EndReason = "stopped"   // Stop was requested or the context was cancelled
)

// Event is anything published on the lifecycle topic.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	GraphID   string         `json:"graph_id"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EventKey partitions events by run.
func (b BaseEvent) EventKey() string {
	return b.RunID
}

type RunStarted struct {
	BaseEvent

	GraphName string   `json:"graph_name"`
	Sequence  []string `json:"sequence"`
	Dropped   []string `json:"dropped,omitempty"`
	StartAt   string   `json:"start_at,omitempty"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// NodeAdvanced is emitted once per main-sequence step, after the node
// finished (or was skipped because it is disabled).
type NodeAdvanced struct {
	BaseEvent

	NodeID     string `json:"node_id"`
	NodeType   string `json:"node_type"`
	Index      int    `json:"index"`
	Disabled   bool   `json:"disabled,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (n NodeAdvanced) GetType() EventType {
	return NodeAdvancedEvent
}

type RunPaused struct {
	BaseEvent

	NodeID string `json:"node_id,omitempty"`
}

func (r RunPaused) GetType() EventType {
	return RunPausedEvent
}

type RunResumed struct {
	BaseEvent

	NodeID string `json:"node_id,omitempty"`
}

func (r RunResumed) GetType() EventType {
	return RunResumedEvent
}

type RunJumped struct {
	BaseEvent

	TargetNodeID   string   `json:"target_node_id"`
	ShortCircuited []string `json:"short_circuited,omitempty"`
	Sequence       []string `json:"sequence"`
}

func (r RunJumped) GetType() EventType {
	return RunJumpedEvent
}

type RunEnded struct {
	BaseEvent

	Reason        EndReason `json:"reason"`
	LastNodeID    string    `json:"last_node_id,omitempty"`
	NodesExecuted int       `json:"nodes_executed"`
	DurationMs    int64     `json:"duration_ms"`
}

func (r RunEnded) GetType() EventType {
	return RunEndedEvent
}

func NewBaseEvent(eventType EventType, graphID, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		GraphID:   graphID,
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}

// New returns an empty event of eventType, ready to be decoded into.
func New(eventType EventType) (Event, bool) {
	switch eventType {
	case RunStartedEvent:
		return &RunStarted{}, true
	case NodeAdvancedEvent:
		return &NodeAdvanced{}, true
	case RunPausedEvent:
		return &RunPaused{}, true
	case RunResumedEvent:
		return &RunResumed{}, true
	case RunJumpedEvent:
		return &RunJumped{}, true
	case RunEndedEvent:
		return &RunEnded{}, true
	default:
		return nil, false
	}
}
