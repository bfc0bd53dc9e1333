package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/sudao/sudao/pkg/models"
)

// MockJournal is a mock implementation of persistence.Journal interface.
type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) SaveRun(ctx context.Context, run *models.RunRecord) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockJournal) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RunRecord), args.Error(1)
}

func (m *MockJournal) RunsByOwner(ctx context.Context, owner string, limit int) ([]*models.RunRecord, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.RunRecord), args.Error(1)
}

func (m *MockJournal) DeleteRun(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockJournal) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockJournal) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
