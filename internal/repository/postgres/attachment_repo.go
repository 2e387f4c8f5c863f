package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"attachr/internal/domain"
	"attachr/internal/port"
)

type attachmentRepo struct {
	db *sqlx.DB
}

// NewAttachmentRepo creates a new PostgreSQL-backed AttachmentRepository.
func NewAttachmentRepo(db *sqlx.DB) port.AttachmentRepository {
	return &attachmentRepo{db: db}
}

func (r *attachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `INSERT INTO attachments
		(id, definition, basename, original_filename, scope, status, created_at, updated_at)
		VALUES (:id, :definition, :basename, :original_filename, :scope, :status, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("attachmentRepo.Create: %w", err)
	}
	return nil
}

func (r *attachmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.db.GetContext(ctx, &a,
		"SELECT * FROM attachments WHERE id = $1 AND status != $2", id, domain.AttachmentStatusDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("attachmentRepo.GetByID: %w", err)
	}
	return &a, nil
}

func (r *attachmentRepo) ListByDefinition(ctx context.Context, definition string, offset, limit int) ([]domain.Attachment, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM attachments WHERE definition = $1 AND status != $2",
		definition, domain.AttachmentStatusDeleted)
	if err != nil {
		return nil, 0, fmt.Errorf("attachmentRepo.ListByDefinition count: %w", err)
	}

	var items []domain.Attachment
	err = r.db.SelectContext(ctx, &items,
		`SELECT * FROM attachments
		 WHERE definition = $1 AND status != $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		definition, domain.AttachmentStatusDeleted, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("attachmentRepo.ListByDefinition: %w", err)
	}
	return items, total, nil
}

func (r *attachmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AttachmentStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE attachments SET status = $1, updated_at = $2 WHERE id = $3",
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("attachmentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attachmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.UpdateStatus(ctx, id, domain.AttachmentStatusDeleted)
}
