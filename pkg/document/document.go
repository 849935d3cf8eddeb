// Package document loads graph documents from JSON or YAML and builds
// executable graphs from them.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/variables"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a document fails struct validation.
var ErrInvalidDocument = errors.New("invalid graph document")

// Format names the encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is the authoring representation of a graph.
type Document struct {
	ID          string       `json:"id"                    validate:"required"         yaml:"id"`
	Name        string       `json:"name"                  yaml:"name"`
	Variables   []Variable   `json:"variables,omitempty"   validate:"dive"             yaml:"variables,omitempty"`
	Nodes       []Node       `json:"nodes"                 validate:"required,min=1,dive" yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" validate:"dive"             yaml:"connections,omitempty"`
}

// Variable declares a typed slot and its start value.
type Variable struct {
	Name  string         `json:"name"            validate:"required"                            yaml:"name"`
	Type  variables.Type `json:"type"            validate:"required,oneof=bool int float string any" yaml:"type"`
	Start any            `json:"start,omitempty" yaml:"start,omitempty"`
}

// Node instantiates a registered node type.
type Node struct {
	ID     string         `json:"id"               validate:"required,excludesall=:" yaml:"id"`
	Type   string         `json:"type"             validate:"required"               yaml:"type"`
	Name   string         `json:"name,omitempty"   yaml:"name,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Connection links "{node_id}:{port}" to "{node_id}:{port}".
type Connection struct {
	SourcePort string `json:"source_port" validate:"required,contains=:" yaml:"source_port"`
	TargetPort string `json:"target_port" validate:"required,contains=:" yaml:"target_port"`
}

// NodeCreator builds nodes by type id.
type NodeCreator interface {
	CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (models.Node, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatFromPath picks the format from the file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document %s: %w", path, err)
	}

	return Parse(data, FormatFromPath(path))
}

// Parse decodes and validates a document.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		err := yaml.Unmarshal(data, &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML graph document: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()

		err := decoder.Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON graph document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format '%s'", format)
	}

	err := doc.Validate()
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// Validate checks the document structure. Port and type checks happen in Build.
func (d *Document) Validate() error {
	err := validate.Struct(d)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// Build creates every node through creator, declares the variables and
// returns the validated graph.
func Build(ctx context.Context, creator NodeCreator, doc *Document, logger *slog.Logger) (*models.Graph, error) {
	err := doc.Validate()
	if err != nil {
		return nil, err
	}

	store := variables.NewStore(logger)

	for _, variable := range doc.Variables {
		err := store.Declare(variable.Name, variable.Type, startValue(variable))
		if err != nil {
			return nil, fmt.Errorf("failed to declare variable '%s': %w", variable.Name, err)
		}
	}

	nodes := make([]models.Node, 0, len(doc.Nodes))

	for _, entry := range doc.Nodes {
		node, err := creator.CreateNode(ctx, entry.Type, entry.ID, entry.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create node: %w", err)
		}

		nodes = append(nodes, node)
	}

	connections := make([]models.Connection, len(doc.Connections))
	for i, connection := range doc.Connections {
		connections[i] = models.Connection{
			SourcePort: connection.SourcePort,
			TargetPort: connection.TargetPort,
		}
	}

	name := doc.Name
	if name == "" {
		name = doc.ID
	}

	graph, err := models.NewGraph(doc.ID, name, nodes, connections, store)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph '%s': %w", doc.ID, err)
	}

	return graph, nil
}

// startValue defaults a missing start to the zero value of the slot type.
func startValue(variable Variable) any {
	if variable.Start != nil {
		return variable.Start
	}

	switch variable.Type {
	case variables.TypeBool:
		return false
	case variables.TypeInt:
		return int64(0)
	case variables.TypeFloat:
		return 0.0
	case variables.TypeString:
		return ""
	default:
		return nil
	}
}

// Encode renders the document in the given format.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported document format '%s'", format)
	}
}
