package cache

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockCache is a testify mock of Cache.
type MockCache struct {
	mock.Mock
}

// Miss expects a lookup of key that finds nothing.
func (m *MockCache) Miss(key any) *mock.Call {
	return m.On("GetReply", mock.Anything, key).Return("", false, nil)
}

// Hit expects a lookup of key that returns reply.
func (m *MockCache) Hit(key any, reply string) *mock.Call {
	return m.On("GetReply", mock.Anything, key).Return(reply, true, nil)
}

func (m *MockCache) GetReply(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) SetReply(ctx context.Context, key, reply string, ttl time.Duration) error {
	return m.Called(ctx, key, reply, ttl).Error(0)
}

func (m *MockCache) Close() error {
	return m.Called().Error(0)
}
