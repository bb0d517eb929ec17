package graphstore

import (
	"context"

	"github.com/stretchr/testify/mock"

	"doc-distill/internal/parser"
)

// MockSink is a mock implementation of Sink using testify/mock.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) SyncRun(ctx context.Context, runID, source string, triples []parser.Triple) error {
	args := m.Called(ctx, runID, source, triples)
	return args.Error(0)
}

func (m *MockSink) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
