package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/storyflow/pkg/document"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/workflow"
)

// GraphSummary describes a registered graph and its main sequence.
type GraphSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Nodes    int      `json:"nodes"`
	Sequence []string `json:"sequence"`
	Owned    []string `json:"owned,omitempty"`
	Dropped  []string `json:"dropped,omitempty"`
}

// Graphs keeps the graph documents runs are started from. Every run gets
// its own graph instance built from the document, so node state is never
// shared between runs.
type Graphs struct {
	registry   *registry.Registry
	linearizer *workflow.Linearizer
	logger     *slog.Logger

	mu        sync.RWMutex
	documents map[string]*document.Document
}

// NewGraphs creates a graph catalog building nodes through reg.
func NewGraphs(reg *registry.Registry, logger *slog.Logger) *Graphs {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("module", "graphs")

	return &Graphs{
		registry:   reg,
		linearizer: workflow.NewLinearizer(logger),
		logger:     logger,
		documents:  make(map[string]*document.Document),
	}
}

// HealthCheck checks that nodes can be created.
func (g *Graphs) HealthCheck() (string, bool) {
	if g.registry == nil {
		return "Registry not initialized", false
	}

	return g.registry.HealthCheck()
}

// Create registers doc after building it once. An existing id is a
// conflict unless replace is set.
func (g *Graphs) Create(ctx context.Context, doc *document.Document, replace bool) (*GraphSummary, error) {
	if doc == nil {
		return nil, NewValidationError("create_graph", "invalid_document", "document is required", ErrInvalidRequest)
	}

	graph, err := document.Build(ctx, g.registry, doc, g.logger)
	if err != nil {
		return nil, NewValidationError("create_graph", "invalid_document", err.Error(), err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.documents[doc.ID]; exists && !replace {
		return nil, fmt.Errorf("%w: %s", ErrGraphExists, doc.ID)
	}

	g.documents[doc.ID] = doc

	g.logger.InfoContext(ctx, "Graph registered", "graph_id", doc.ID, "nodes", len(doc.Nodes))

	summary := g.summarize(graph)

	return &summary, nil
}

// List returns the registered graphs ordered by id.
func (g *Graphs) List(ctx context.Context) ([]GraphSummary, error) {
	g.mu.RLock()
	docs := make([]*document.Document, 0, len(g.documents))
	for _, doc := range g.documents {
		docs = append(docs, doc)
	}
	g.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *document.Document) int {
		return cmp.Compare(a.ID, b.ID)
	})

	summaries := make([]GraphSummary, 0, len(docs))

	for _, doc := range docs {
		graph, err := document.Build(ctx, g.registry, doc, g.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph %s: %w", doc.ID, err)
		}

		summaries = append(summaries, g.summarize(graph))
	}

	return summaries, nil
}

// Get returns the summary of graph id.
func (g *Graphs) Get(ctx context.Context, id string) (*GraphSummary, error) {
	graph, err := g.Build(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := g.summarize(graph)

	return &summary, nil
}

// Document returns the document registered under id.
func (g *Graphs) Document(id string) (*document.Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc, ok := g.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}

	return doc, nil
}

// Build creates a fresh graph instance for id.
func (g *Graphs) Build(ctx context.Context, id string) (*models.Graph, error) {
	doc, err := g.Document(id)
	if err != nil {
		return nil, err
	}

	return document.Build(ctx, g.registry, doc, g.logger)
}

// Delete removes graph id from the catalog. Runs already started keep
// their graph instance.
func (g *Graphs) Delete(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.documents[id]; !ok {
		return fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}

	delete(g.documents, id)

	return nil
}

func (g *Graphs) summarize(graph *models.Graph) GraphSummary {
	linearization := g.linearizer.Linearize(graph)

	return GraphSummary{
		ID:       graph.ID(),
		Name:     graph.Name(),
		Nodes:    len(graph.Nodes()),
		Sequence: linearization.IDs(),
		Owned:    linearization.Owned,
		Dropped:  linearization.Dropped,
	}
}
