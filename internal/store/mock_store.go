package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doc-distill/internal/parser"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRun(ctx context.Context, pipeline Pipeline, source, model string) (Run, error) {
	args := m.Called(ctx, pipeline, source, model)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Run), args.Error(1)
}

func (m *MockStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockStore) CompleteRun(ctx context.Context, id uuid.UUID, res RunResult) error {
	args := m.Called(ctx, id, res)
	return args.Error(0)
}

func (m *MockStore) SaveTriples(ctx context.Context, id uuid.UUID, triples []parser.Triple) error {
	args := m.Called(ctx, id, triples)
	return args.Error(0)
}

func (m *MockStore) ListTriples(ctx context.Context, id uuid.UUID) ([]parser.Triple, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]parser.Triple), args.Error(1)
}

func (m *MockStore) SaveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	args := m.Called(ctx, id, summary)
	return args.Error(0)
}

func (m *MockStore) GetSummary(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
