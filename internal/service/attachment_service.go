package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"attachr/internal/attachment"
	"attachr/internal/domain"
	"attachr/internal/port"
	"attachr/internal/transform"
)

// UploadInput is the DTO for attachment upload requests.
type UploadInput struct {
	Definition string
	Filename   string
	Body       io.Reader
	Scope      domain.Scope
}

// AttachmentService defines the attachment management contract.
type AttachmentService interface {
	Upload(ctx context.Context, input UploadInput) (*domain.Attachment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	List(ctx context.Context, definition string, offset, limit int) ([]domain.Attachment, int, error)
	GetURL(ctx context.Context, id uuid.UUID, version string, signed bool) (*string, error)
	GetURLs(ctx context.Context, id uuid.UUID, signed bool) (map[string]*string, error)
	Delete(ctx context.Context, id uuid.UUID) (*attachment.DeleteReport, error)
	Definitions() []string
}

type attachmentService struct {
	repo      port.AttachmentRepository
	registry  *attachment.Registry
	attachers map[string]*attachment.Attacher
}

// NewAttachmentService creates a new AttachmentService with one Attacher per
// registered definition.
func NewAttachmentService(
	repo port.AttachmentRepository,
	registry *attachment.Registry,
	backend port.Backend,
	pipeline *transform.Pipeline,
	opts attachment.Options,
) AttachmentService {
	attachers := make(map[string]*attachment.Attacher)
	for _, name := range registry.Names() {
		def, _ := registry.Get(name)
		attachers[name] = attachment.NewAttacher(def, backend, pipeline, opts)
	}
	return &attachmentService{repo: repo, registry: registry, attachers: attachers}
}

func (s *attachmentService) attacher(definition string) (*attachment.Attacher, error) {
	a, ok := s.attachers[definition]
	if !ok {
		return nil, domain.ErrUnknownDefinition
	}
	return a, nil
}

func (s *attachmentService) Upload(ctx context.Context, input UploadInput) (*domain.Attachment, error) {
	a, err := s.attacher(input.Definition)
	if err != nil {
		return nil, err
	}

	log.Printf("attachmentService.Upload: storing %s as %s", input.Filename, input.Definition)

	result, storeErr := a.Store(ctx, attachment.StreamSource{Reader: input.Body, Filename: input.Filename}, input.Scope)
	if result == nil {
		return nil, storeErr
	}

	rec := &domain.Attachment{
		ID:               uuid.New(),
		Definition:       input.Definition,
		Basename:         result.Basename,
		OriginalFilename: input.Filename,
		Scope:            input.Scope,
		Status:           domain.AttachmentStatusStored,
	}
	if storeErr != nil {
		// Partially written versions stay addressable so the record can be deleted.
		rec.Status = domain.AttachmentStatusFailed
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		log.Printf("attachmentService.Upload: failed to create record for %s: %v", result.Basename, err)
		return nil, fmt.Errorf("creating attachment record: %w", err)
	}
	if storeErr != nil {
		return rec, storeErr
	}
	return rec, nil
}

func (s *attachmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *attachmentService) List(ctx context.Context, definition string, offset, limit int) ([]domain.Attachment, int, error) {
	if _, err := s.attacher(definition); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByDefinition(ctx, definition, offset, limit)
}

func (s *attachmentService) lookup(ctx context.Context, id uuid.UUID) (*domain.Attachment, *attachment.Attacher, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.attacher(rec.Definition)
	if err != nil {
		return nil, nil, err
	}
	return rec, a, nil
}

func (s *attachmentService) GetURL(ctx context.Context, id uuid.UUID, version string, signed bool) (*string, error) {
	rec, a, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.URL(ctx, attachment.Ref{Basename: rec.Basename, Scope: rec.Scope}, attachment.URLOptions{
		Version: version,
		Signed:  signed,
	})
}

func (s *attachmentService) GetURLs(ctx context.Context, id uuid.UUID, signed bool) (map[string]*string, error) {
	rec, a, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.URLs(ctx, attachment.Ref{Basename: rec.Basename, Scope: rec.Scope}, signed)
}

func (s *attachmentService) Delete(ctx context.Context, id uuid.UUID) (*attachment.DeleteReport, error) {
	log.Printf("attachmentService.Delete: deleting attachment %s", id)

	rec, a, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := a.Delete(ctx, attachment.Ref{Basename: rec.Basename, Scope: rec.Scope})
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		log.Printf("attachmentService.Delete: %d versions of %s failed: %v", len(report.Failed), id, err)
		if rec.Status != domain.AttachmentStatusFailed {
			// Some versions may already be gone; the record stays for a retry.
			if uerr := s.repo.UpdateStatus(ctx, id, domain.AttachmentStatusFailed); uerr != nil {
				log.Printf("attachmentService.Delete: failed to mark %s failed: %v", id, uerr)
			}
		}
		return report, fmt.Errorf("deleting from storage: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return report, err
	}
	return report, nil
}

func (s *attachmentService) Definitions() []string {
	return s.registry.Names()
}
