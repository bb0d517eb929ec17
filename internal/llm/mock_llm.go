package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client.
type MockClient struct {
	mock.Mock
}

// NewMockClient returns a MockClient that reports model as its name. Only Generate
// needs expectations after that.
func NewMockClient(model string) *MockClient {
	m := new(MockClient)
	m.On("Model").Return(model).Maybe()
	return m
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Model() string {
	return m.Called().String(0)
}
