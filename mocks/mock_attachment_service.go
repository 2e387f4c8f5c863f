package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"attachr/internal/attachment"
	"attachr/internal/domain"
	"attachr/internal/service"
)

// MockAttachmentService is a mock implementation of service.AttachmentService.
type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) Upload(ctx context.Context, input service.UploadInput) (*domain.Attachment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentService) List(ctx context.Context, definition string, offset, limit int) ([]domain.Attachment, int, error) {
	args := m.Called(ctx, definition, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Attachment), args.Int(1), args.Error(2)
}

func (m *MockAttachmentService) GetURL(ctx context.Context, id uuid.UUID, version string, signed bool) (*string, error) {
	args := m.Called(ctx, id, version, signed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockAttachmentService) GetURLs(ctx context.Context, id uuid.UUID, signed bool) (map[string]*string, error) {
	args := m.Called(ctx, id, signed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*string), args.Error(1)
}

func (m *MockAttachmentService) Delete(ctx context.Context, id uuid.UUID) (*attachment.DeleteReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*attachment.DeleteReport), args.Error(1)
}

func (m *MockAttachmentService) Definitions() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
