package workflow

import "github.com/dukex/storyflow/pkg/models"

// Queue is a materialized main sequence with a cursor. It is owned by the
// executor goroutine.
type Queue struct {
	nodes  []models.Interactive
	cursor int
}

// NewQueue creates a queue positioned on its first node.
func NewQueue(nodes []models.Interactive) *Queue {
	return &Queue{nodes: nodes}
}

// Current returns the node at the cursor.
func (q *Queue) Current() (models.Interactive, bool) {
	if q.Ended() {
		return nil, false
	}

	return q.nodes[q.cursor], true
}

// Advance moves the cursor forward, stopping at the end.
func (q *Queue) Advance() {
	if q.cursor < len(q.nodes) {
		q.cursor++
	}
}

// Position returns the cursor.
func (q *Queue) Position() int {
	return q.cursor
}

// Len returns the number of queued nodes.
func (q *Queue) Len() int {
	return len(q.nodes)
}

// Ended reports whether the cursor passed the last node.
func (q *Queue) Ended() bool {
	return q.cursor >= len(q.nodes)
}

// IDs returns the queued node ids in order.
func (q *Queue) IDs() []string {
	ids := make([]string, 0, len(q.nodes))
	for _, node := range q.nodes {
		ids = append(ids, node.ID())
	}

	return ids
}
