package workflow

import (
	"log/slog"

	"github.com/dukex/storyflow/pkg/models"
)

// Linearization is the main-line execution order of a graph.
type Linearization struct {
	// Sequence holds the main-line nodes in execution order.
	Sequence []models.Interactive
	// Owned lists the nodes reached from a control node's branch ports.
	Owned []string
	// Dropped lists the nodes left with unresolved dependencies (cycles).
	Dropped []string
}

// IDs returns the ids of the sequence.
func (l Linearization) IDs() []string {
	ids := make([]string, 0, len(l.Sequence))
	for _, node := range l.Sequence {
		ids = append(ids, node.ID())
	}

	return ids
}

// Index returns the position of id in the sequence or -1.
func (l Linearization) Index(id string) int {
	for i, node := range l.Sequence {
		if node.ID() == id {
			return i
		}
	}

	return -1
}

// Linearizer orders the interactive nodes of a graph with Kahn's algorithm.
type Linearizer struct {
	logger *slog.Logger
}

// NewLinearizer creates a linearizer.
func NewLinearizer(logger *slog.Logger) *Linearizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Linearizer{logger: logger.With("module", "linearizer")}
}

// Linearize computes the main sequence. Only edges from an interactive
// node's exit into another interactive node's enter create dependencies.
// Ties resolve in authoring order and the queue is never re-sorted. Nodes
// owned by a branch are processed but never placed on the main line.
func (l *Linearizer) Linearize(graph *models.Graph) Linearization {
	nodes := graph.InteractiveNodes()
	owned := branchOwned(graph)

	inDegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		inDegree[node.ID()] = 0
	}

	for _, node := range nodes {
		for _, successor := range flowSuccessors(graph, node.ID()) {
			inDegree[successor.ID()]++
		}
	}

	queue := make([]models.Interactive, 0, len(nodes))

	for _, node := range nodes {
		if inDegree[node.ID()] == 0 {
			queue = append(queue, node)
		}
	}

	var result Linearization

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if _, isOwned := owned[node.ID()]; isOwned {
			result.Owned = append(result.Owned, node.ID())
		} else {
			result.Sequence = append(result.Sequence, node)
		}

		for _, successor := range flowSuccessors(graph, node.ID()) {
			inDegree[successor.ID()]--
			if inDegree[successor.ID()] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	for _, node := range nodes {
		if inDegree[node.ID()] > 0 {
			result.Dropped = append(result.Dropped, node.ID())
		}
	}

	if len(result.Dropped) > 0 {
		l.logger.Warn("Nodes left out of the sequence by a cycle",
			"graph_id", graph.ID(),
			"dropped", result.Dropped,
		)
	}

	l.logger.Debug("Graph linearized",
		"graph_id", graph.ID(),
		"sequence", result.IDs(),
		"owned", result.Owned,
	)

	return result
}

// flowSuccessors returns the interactive nodes whose enter port is fed by
// nodeID's exit port.
func flowSuccessors(graph *models.Graph, nodeID string) []models.Interactive {
	return graph.Successors(nodeID, models.PortExit)
}

// branchOwned walks every control node's branch ports and marks every
// interactive node reachable from them, following all outputs of reached
// nodes so nested control nodes are covered.
func branchOwned(graph *models.Graph) map[string]struct{} {
	owned := make(map[string]struct{})

	var frontier []models.Interactive

	for _, node := range graph.InteractiveNodes() {
		owner, ok := node.(models.BranchOwner)
		if !ok || len(owner.BranchPorts()) == 0 {
			continue
		}

		frontier = append(frontier, graph.Successors(node.ID(), owner.BranchPorts()...)...)
	}

	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]

		if _, seen := owned[node.ID()]; seen {
			continue
		}

		owned[node.ID()] = struct{}{}
		frontier = append(frontier, graph.Successors(node.ID())...)
	}

	return owned
}
