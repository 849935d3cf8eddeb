package mocks

import (
	"context"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

var _ persistence.Persistence = (*MockPersistence)(nil)

func (m *MockPersistence) Save(ctx context.Context, snapshot *models.Snapshot) error {
	args := m.Called(ctx, snapshot)

	return args.Error(0)
}

func (m *MockPersistence) Load(ctx context.Context, graphID, slot string) (*models.Snapshot, error) {
	args := m.Called(ctx, graphID, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockPersistence) List(ctx context.Context, graphID string) ([]*models.Snapshot, error) {
	args := m.Called(ctx, graphID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Snapshot), args.Error(1)
}

func (m *MockPersistence) Delete(ctx context.Context, graphID, slot string) error {
	args := m.Called(ctx, graphID, slot)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
