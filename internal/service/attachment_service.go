package service

import (
	"context"
	"errors"
	"time"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	msgNoteIDRequired = "Note ID is required"
	msgNoFiles        = "No files uploaded"
)

// FileStore keeps uploaded bytes under a per-user namespace.
type FileStore interface {
	Save(userID string, upload *domain.Upload) (*domain.StoredFile, error)
	Remove(userID, filename string) error
}

type AttachmentService struct {
	notes  *NoteService
	repo   repository.AttachmentRepository
	files  FileStore
	events EventPublisher
}

func NewAttachmentService(notes *NoteService, repo repository.AttachmentRepository, files FileStore, events EventPublisher) *AttachmentService {
	return &AttachmentService{
		notes:  notes,
		repo:   repo,
		files:  files,
		events: events,
	}
}

// Create stores every upload and records its metadata against an owned
// note. Either all uploads are kept or none are.
func (s *AttachmentService) Create(ctx context.Context, userID, noteID string, uploads []*domain.Upload) ([]*domain.Attachment, error) {
	if noteID == "" {
		return nil, &ValidationError{Message: msgNoteIDRequired}
	}
	if len(uploads) == 0 {
		return nil, &ValidationError{Message: msgNoFiles}
	}

	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	created := make([]*domain.Attachment, 0, len(uploads))
	for _, upload := range uploads {
		attachment, err := s.store(ctx, userID, noteID, upload)
		if err != nil {
			s.rollback(ctx, userID, created)
			return nil, err
		}
		created = append(created, attachment)
	}

	for _, a := range created {
		publish(s.events, userID, EventAttachmentAdded, a)
	}
	return created, nil
}

func (s *AttachmentService) store(ctx context.Context, userID, noteID string, upload *domain.Upload) (*domain.Attachment, error) {
	stored, err := s.files.Save(userID, upload)
	if err != nil {
		var rejected *domain.RejectedFileError
		if errors.As(err, &rejected) {
			return nil, &ValidationError{Message: rejected.Reason}
		}
		return nil, err
	}

	attachment := &domain.Attachment{
		ID:           uuid.New().String(),
		NoteID:       noteID,
		UserID:       userID,
		Filename:     stored.Filename,
		OriginalName: upload.OriginalName,
		MimeType:     stored.MimeType,
		Size:         stored.Size,
		URL:          stored.URL,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, attachment); err != nil {
		if rmErr := s.files.Remove(userID, stored.Filename); rmErr != nil {
			log.Warn().Err(rmErr).Str("filename", stored.Filename).Msg("failed to remove file after metadata write failed")
		}
		return nil, err
	}

	return attachment, nil
}

func (s *AttachmentService) rollback(ctx context.Context, userID string, created []*domain.Attachment) {
	for _, a := range created {
		if err := s.repo.Delete(ctx, a.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("attachment_id", a.ID).Msg("failed to roll back attachment record")
		}
		if err := s.files.Remove(userID, a.Filename); err != nil {
			log.Warn().Err(err).Str("filename", a.Filename).Msg("failed to roll back stored file")
		}
	}
}

func (s *AttachmentService) List(ctx context.Context, userID, noteID string) ([]*domain.Attachment, error) {
	if noteID == "" {
		return nil, &ValidationError{Message: msgNoteIDRequired}
	}

	return s.repo.ListByNote(ctx, noteID, userID)
}

// Delete removes the record first, then the stored file. A file that cannot
// be removed is logged as orphaned and the call still succeeds.
func (s *AttachmentService) Delete(ctx context.Context, userID, id string) error {
	attachment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Attachment")
		}
		return err
	}

	if attachment.UserID != userID {
		return notFound("Attachment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Attachment")
		}
		return err
	}

	s.removeFile(attachment)

	publish(s.events, userID, EventAttachmentDeleted, &AttachmentDeletedPayload{ID: id, NoteID: attachment.NoteID})
	return nil
}

// PurgeNote deletes all of a note's attachments. It is called after the
// note itself is gone, so it does not check note ownership.
func (s *AttachmentService) PurgeNote(ctx context.Context, userID, noteID string) error {
	attachments, err := s.repo.ListByNote(ctx, noteID, userID)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if err := s.repo.Delete(ctx, a.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.removeFile(a)
	}

	return nil
}

func (s *AttachmentService) removeFile(a *domain.Attachment) {
	if err := s.files.Remove(a.UserID, a.Filename); err != nil {
		log.Error().Err(err).
			Str("attachment_id", a.ID).
			Str("user_id", a.UserID).
			Str("filename", a.Filename).
			Msg("orphaned attachment file")
	}
}
