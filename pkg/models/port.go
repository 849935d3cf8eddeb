// Package models defines port-based graph models for node connections.
package models

// Flow port names shared by every interactive node.
const (
	PortEnter = "enter"
	PortExit  = "exit"
)

// Port represents a connection point on a node.
type Port struct {
	ID          string `json:"id"`      // Globally unique: "{nodeID}:{portName}"
	NodeID      string `json:"node_id"` // Which node this port belongs to
	Name        string `json:"name"`    // Port name (unique within node)
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
}

// InputPort extends Port with input-specific properties.
type InputPort struct {
	Port
}

// OutputPort extends Port with output-specific properties.
type OutputPort struct {
	Port

	// Branch marks a control node output that may fan out to several chains.
	Branch bool `json:"branch,omitempty"`
}

// PortDirection represents the direction of data flow for a port.
type PortDirection string

const (
	PortDirectionInput  PortDirection = "input"
	PortDirectionOutput PortDirection = "output"
)

// GetDirection returns the direction of the port based on its type.
func (p InputPort) GetDirection() PortDirection {
	return PortDirectionInput
}

// GetDirection returns the direction of the port based on its type.
func (p OutputPort) GetDirection() PortDirection {
	return PortDirectionOutput
}

// NewInputPort builds an input port owned by nodeID.
func NewInputPort(nodeID, name, description string) InputPort {
	return InputPort{
		Port: Port{
			ID:          MakePortID(nodeID, name),
			NodeID:      nodeID,
			Name:        name,
			Description: description,
		},
	}
}

// NewOutputPort builds an output port owned by nodeID.
func NewOutputPort(nodeID, name, description string) OutputPort {
	return OutputPort{
		Port: Port{
			ID:          MakePortID(nodeID, name),
			NodeID:      nodeID,
			Name:        name,
			Description: description,
		},
	}
}

// NewBranchPort builds a branch output port owned by a control node.
func NewBranchPort(nodeID, name, description string) OutputPort {
	port := NewOutputPort(nodeID, name, description)
	port.Branch = true

	return port
}

// FlowPorts returns the enter/exit pair every interactive node carries.
func FlowPorts(nodeID string) ([]InputPort, []OutputPort) {
	return []InputPort{NewInputPort(nodeID, PortEnter, "Main-line entry")},
		[]OutputPort{NewOutputPort(nodeID, PortExit, "Main-line continuation")}
}

// ParsePortID parses a port ID in format "{node_id}:{port_name}" into components.
func ParsePortID(portID string) (string, string, bool) {
	for i := len(portID) - 1; i >= 0; i-- {
		if portID[i] == ':' {
			return portID[:i], portID[i+1:], true
		}
	}

	return "", "", false
}

// MakePortID creates a port ID from node ID and port name.
func MakePortID(nodeID, portName string) string {
	return nodeID + ":" + portName
}
