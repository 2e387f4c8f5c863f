package port

import (
	"context"

	"github.com/google/uuid"

	"attachr/internal/domain"
)

// AttachmentRepository defines the contract for attachment record persistence.
type AttachmentRepository interface {
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	ListByDefinition(ctx context.Context, definition string, offset, limit int) ([]domain.Attachment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AttachmentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}
