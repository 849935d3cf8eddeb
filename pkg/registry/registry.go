// Package registry keeps the node factories a graph document can refer to.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNodeTypeNotRegistered is returned when no factory serves a node type.
	ErrNodeTypeNotRegistered = errors.New("node type not registered")

	// ErrInvalidNodeConfig is returned when a config does not satisfy the factory schema.
	ErrInvalidNodeConfig = errors.New("invalid node config")
)

type Registry struct {
	logger        *slog.Logger
	mu            sync.RWMutex
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		logger:        log.With("module", "registry"),
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode adds a factory. A factory registered later under the same
// type id replaces the earlier one.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodeFactories[factory.ID()]; exists {
		r.logger.Warn("Replacing node factory", "type", factory.ID())
	}

	r.nodeFactories[factory.ID()] = factory
}

// Factory returns the factory registered for nodeType.
func (r *Registry) Factory(nodeType string) (protocol.NodeFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.nodeFactories[nodeType]

	return factory, ok
}

// NodeTypes returns the registered type ids, sorted.
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	slices.Sort(types)

	return types
}

// GetAvailableNodes returns every registered factory ordered by type id.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	types := r.NodeTypes()

	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(types))
	for _, nodeType := range types {
		factories = append(factories, r.nodeFactories[nodeType])
	}

	return factories
}

// HealthCheck reports whether any node type can be created.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.nodeFactories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.nodeFactories)), true
}

// CreateNode validates config against the factory schema and builds the node.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (models.Node, error) {
	factory, ok := r.Factory(nodeType)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNodeTypeNotRegistered, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	err := validateConfig(factory.Schema(), config)
	if err != nil {
		return nil, fmt.Errorf("node '%s' (%s): %w", id, nodeType, err)
	}

	node, err := factory.Create(ctx, id, config)
	if err != nil {
		return nil, fmt.Errorf("node '%s' (%s): %w", id, nodeType, err)
	}

	return node, nil
}

// LoadNodePlugins opens every shared object under <pluginsPath>/nodes and
// registers the NodeFactory each one exports as the symbol "Node".
func (r *Registry) LoadNodePlugins(pluginsPath string) error {
	factories, err := loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
	if err != nil {
		return err
	}

	for _, factory := range factories {
		r.RegisterNode(factory)
	}

	return nil
}

func validateConfig(schema map[string]any, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidNodeConfig, strings.Join(problems, "; "))
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin '%s': %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s' does not export %s: %w", p, symbolName, err)
		}

		var castV T

		switch sym := v.(type) {
		case *T:
			castV = *sym
		case T:
			castV = sym
		default:
			return nil, fmt.Errorf("plugin '%s' exports %s with unexpected type %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded node plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
