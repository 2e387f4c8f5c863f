package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"attachr/internal/port"
)

// MockBackend is a mock implementation of port.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Put(ctx context.Context, input port.PutInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockBackend) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockBackend) BuildURL(bucket, key string, opts port.URLOptions) string {
	args := m.Called(bucket, key, opts)
	return args.String(0)
}

func (m *MockBackend) BuildSignedURL(ctx context.Context, bucket, key string, opts port.SignOptions) (string, error) {
	args := m.Called(ctx, bucket, key, opts)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Name() string {
	return "mock"
}
