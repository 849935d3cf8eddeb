package savegame

import (
	"context"
	"sync"

	"github.com/dukex/storyflow/pkg/workflow"
)

// Saver lets nodes save the run they belong to. It is handed to the
// executor through workflow.WithSaver and bound to it with Bind.
type Saver struct {
	service *Service

	mu       sync.RWMutex
	executor *workflow.Executor
}

// NewSaver creates a saver writing through service.
func NewSaver(service *Service) *Saver {
	return &Saver{service: service}
}

// Bind sets the executor whose run is saved.
func (s *Saver) Bind(executor *workflow.Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executor = executor
}

// Save implements models.Saver.
func (s *Saver) Save(ctx context.Context, slot string) error {
	s.mu.RLock()
	executor := s.executor
	s.mu.RUnlock()

	if executor == nil {
		return workflow.ErrNotRunning
	}

	_, err := s.service.Save(ctx, slot, executor)

	return err
}
