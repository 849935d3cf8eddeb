package models

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/storyflow/pkg/variables"
)

var (
	// ErrNodeNotFound indicates a node was not found by the given identifier.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates two nodes share an identifier.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrInvalidConnection indicates a connection whose endpoints do not exist or point the wrong way.
	ErrInvalidConnection = errors.New("invalid connection")
)

// Graph owns a flat, ordered collection of nodes, the connections between
// their ports and the variable store. Nodes and connections refer to each
// other by id only.
type Graph struct {
	id          string
	name        string
	nodes       []Node
	index       map[string]int
	connections []Connection
	bySource    map[string][]int
	byTarget    map[string][]int
	variables   *variables.Store
}

// NewGraph validates and indexes a graph. The order of nodes is the authoring
// order and is preserved by every traversal.
func NewGraph(id, name string, nodes []Node, connections []Connection, store *variables.Store) (*Graph, error) {
	if store == nil {
		store = variables.NewStore(nil)
	}

	graph := &Graph{
		id:          id,
		name:        name,
		nodes:       make([]Node, 0, len(nodes)),
		index:       make(map[string]int, len(nodes)),
		connections: make([]Connection, 0, len(connections)),
		bySource:    make(map[string][]int),
		byTarget:    make(map[string][]int),
		variables:   store,
	}

	for _, node := range nodes {
		if _, exists := graph.index[node.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID())
		}

		graph.index[node.ID()] = len(graph.nodes)
		graph.nodes = append(graph.nodes, node)
	}

	for i, connection := range connections {
		if connection.ID == "" {
			connection.ID = fmt.Sprintf("c%d", i)
		}

		err := graph.validateConnection(connection)
		if err != nil {
			return nil, err
		}

		position := len(graph.connections)
		graph.connections = append(graph.connections, connection)
		graph.bySource[connection.SourcePort] = append(graph.bySource[connection.SourcePort], position)
		graph.byTarget[connection.TargetPort] = append(graph.byTarget[connection.TargetPort], position)
	}

	return graph, nil
}

func (g *Graph) validateConnection(connection Connection) error {
	sourceID, sourcePort, ok := ParsePortID(connection.SourcePort)
	if !ok {
		return fmt.Errorf("%w: malformed source port %q", ErrInvalidConnection, connection.SourcePort)
	}

	targetID, targetPort, ok := ParsePortID(connection.TargetPort)
	if !ok {
		return fmt.Errorf("%w: malformed target port %q", ErrInvalidConnection, connection.TargetPort)
	}

	source, err := g.NodeByID(sourceID)
	if err != nil {
		return fmt.Errorf("%w: source %s: %w", ErrInvalidConnection, connection.SourcePort, err)
	}

	target, err := g.NodeByID(targetID)
	if err != nil {
		return fmt.Errorf("%w: target %s: %w", ErrInvalidConnection, connection.TargetPort, err)
	}

	output, ok := findOutput(source, sourcePort)
	if !ok {
		return fmt.Errorf("%w: %s has no output port %q", ErrInvalidConnection, sourceID, sourcePort)
	}

	if !hasInput(target, targetPort) {
		return fmt.Errorf("%w: %s has no input port %q", ErrInvalidConnection, targetID, targetPort)
	}

	// An exit leads to a single successor. Enter ports merge several paths;
	// every other input takes a single value.
	if !output.Branch && output.Name == PortExit && len(g.bySource[connection.SourcePort]) > 0 {
		return fmt.Errorf("%w: exit port %s is already connected", ErrInvalidConnection, connection.SourcePort)
	}

	if targetPort != PortEnter && len(g.byTarget[connection.TargetPort]) > 0 {
		return fmt.Errorf("%w: input port %s is already connected", ErrInvalidConnection, connection.TargetPort)
	}

	return nil
}

func findOutput(node Node, name string) (OutputPort, bool) {
	for _, port := range node.OutputPorts() {
		if port.Name == name {
			return port, true
		}
	}

	return OutputPort{}, false
}

func hasInput(node Node, name string) bool {
	for _, port := range node.InputPorts() {
		if port.Name == name {
			return true
		}
	}

	return false
}

// ID returns the graph id.
func (g *Graph) ID() string {
	return g.id
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// Variables returns the graph's variable store.
func (g *Graph) Variables() *variables.Store {
	return g.variables
}

// NodeByID looks a node up. Unknown ids yield ErrNodeNotFound.
func (g *Graph) NodeByID(id string) (Node, error) {
	position, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	return g.nodes[position], nil
}

// Nodes returns every node in authoring order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.nodes))
	copy(nodes, g.nodes)

	return nodes
}

// Connections returns a copy of every connection.
func (g *Graph) Connections() []Connection {
	connections := make([]Connection, len(g.connections))
	copy(connections, g.connections)

	return connections
}

// ConnectionsFrom returns the connections leaving portID in authoring order.
func (g *Graph) ConnectionsFrom(portID string) []Connection {
	return g.collect(g.bySource[portID])
}

// ConnectionsTo returns the connections entering portID.
func (g *Graph) ConnectionsTo(portID string) []Connection {
	return g.collect(g.byTarget[portID])
}

func (g *Graph) collect(positions []int) []Connection {
	connections := make([]Connection, 0, len(positions))
	for _, position := range positions {
		connections = append(connections, g.connections[position])
	}

	return connections
}

// IsConnected reports whether any connection touches portID.
func (g *Graph) IsConnected(portID string) bool {
	return len(g.bySource[portID]) > 0 || len(g.byTarget[portID]) > 0
}

// IsEnabled reports whether an interactive node takes part in the flow. A node
// with neither its enter nor its exit port connected is isolated and disabled.
func (g *Graph) IsEnabled(nodeID string) bool {
	return g.IsConnected(MakePortID(nodeID, PortEnter)) || g.IsConnected(MakePortID(nodeID, PortExit))
}

// Next returns the interactive node fed by nodeID's exit port.
func (g *Graph) Next(nodeID string) (Interactive, bool) {
	for _, connection := range g.ConnectionsFrom(MakePortID(nodeID, PortExit)) {
		_, port, _ := ParsePortID(connection.TargetPort)
		if port != PortEnter {
			continue
		}

		node, err := g.NodeByID(connection.TargetNodeID())
		if err != nil {
			continue
		}

		if interactive, ok := node.(Interactive); ok {
			return interactive, true
		}
	}

	return nil, false
}

// Successors returns the interactive nodes directly fed by any output port of nodeID.
func (g *Graph) Successors(nodeID string, portNames ...string) []Interactive {
	node, err := g.NodeByID(nodeID)
	if err != nil {
		return nil
	}

	var successors []Interactive

	for _, port := range node.OutputPorts() {
		if len(portNames) > 0 && !slices.Contains(portNames, port.Name) {
			continue
		}

		for _, connection := range g.ConnectionsFrom(port.ID) {
			_, targetPort, _ := ParsePortID(connection.TargetPort)
			if targetPort != PortEnter {
				continue
			}

			target, err := g.NodeByID(connection.TargetNodeID())
			if err != nil {
				continue
			}

			if interactive, ok := target.(Interactive); ok {
				successors = append(successors, interactive)
			}
		}
	}

	return successors
}

// InteractiveNodes returns the main-line capable nodes in authoring order.
func (g *Graph) InteractiveNodes() []Interactive {
	var nodes []Interactive

	for _, node := range g.nodes {
		if interactive, ok := node.(Interactive); ok {
			nodes = append(nodes, interactive)
		}
	}

	return nodes
}
