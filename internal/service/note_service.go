package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository"
	"noteforge-server/pkg/hash"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxNoteWriteAttempts bounds the read-modify-write loop on a note when its
// revision changes underneath us.
const maxNoteWriteAttempts = 3

const msgContentRequired = "Content cannot be empty"

// AttachmentPurger removes every attachment of a note, stored files included.
type AttachmentPurger interface {
	PurgeNote(ctx context.Context, userID, noteID string) error
}

type NoteService struct {
	repo        repository.NoteRepository
	versionRepo repository.NoteVersionRepository
	tagRepo     repository.TagRepository
	purger      AttachmentPurger
	events      EventPublisher
}

func NewNoteService(
	repo repository.NoteRepository,
	versionRepo repository.NoteVersionRepository,
	tagRepo repository.TagRepository,
	events EventPublisher,
) *NoteService {
	return &NoteService{
		repo:        repo,
		versionRepo: versionRepo,
		tagRepo:     tagRepo,
		events:      events,
	}
}

func (s *NoteService) SetAttachmentPurger(purger AttachmentPurger) {
	s.purger = purger
}

func (s *NoteService) Create(ctx context.Context, userID string, req *domain.CreateNoteRequest) (*domain.Note, error) {
	content, err := requireContent(req.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       titleOrDefault(req.Title),
		Content:     content,
		ContentType: contentTypeOrDefault(req.ContentType),
		TemplateID:  req.TemplateID,
		ContentHash: hash.Content(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}

	publish(s.events, userID, EventNoteCreated, note.ToResponse())
	return note, nil
}

func (s *NoteService) List(ctx context.Context, userID string, filter domain.NoteFilter) ([]*domain.Note, error) {
	return s.repo.ListByUser(ctx, userID, filter)
}

func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.owned(ctx, userID, noteID)
}

func (s *NoteService) Update(ctx context.Context, userID, noteID string, req *domain.UpdateNoteRequest) (*domain.Note, error) {
	content, err := requireContent(req.Content)
	if err != nil {
		return nil, err
	}

	note, err := s.mutate(ctx, userID, noteID, func(n *domain.Note) bool {
		n.Title = titleOrDefault(req.Title)
		n.Content = content
		n.ContentHash = hash.Content(content)
		if req.ContentType != "" {
			n.ContentType = req.ContentType
		}
		if req.TemplateID != nil {
			n.TemplateID = req.TemplateID
		}
		if req.IsArchived != nil {
			n.IsArchived = *req.IsArchived
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, userID, EventNoteUpdated, note.ToResponse())
	return note, nil
}

// Delete removes the note, then its versions, tag links and attachments.
// Once the note itself is gone the call succeeds; leftovers are logged.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.owned(ctx, userID, noteID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, noteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Note")
		}
		if errors.Is(err, repository.ErrConflict) {
			return &ConflictError{Reason: "Note was modified concurrently, please retry"}
		}
		return err
	}

	logger := log.With().Str("note_id", noteID).Str("user_id", userID).Logger()

	if err := s.versionRepo.DeleteByNote(ctx, noteID); err != nil {
		logger.Warn().Err(err).Msg("failed to delete versions of deleted note")
	}
	if s.tagRepo != nil {
		if err := s.tagRepo.DeleteLinksByNote(ctx, noteID); err != nil {
			logger.Warn().Err(err).Msg("failed to delete tag links of deleted note")
		}
	}
	if s.purger != nil {
		if err := s.purger.PurgeNote(ctx, userID, noteID); err != nil {
			logger.Warn().Err(err).Msg("failed to purge attachments of deleted note")
		}
	}

	publish(s.events, userID, EventNoteDeleted, &NoteDeletedPayload{NoteID: noteID})
	return nil
}

// owned loads a note and hides it unless userID owns it.
func (s *NoteService) owned(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Note")
		}
		return nil, err
	}

	if note.UserID != userID {
		return nil, notFound("Note")
	}

	return note, nil
}

// mutate applies fn to a fresh copy of the note and writes it back at the
// revision it was read at, re-reading on revision conflicts. fn returns
// false when there is nothing to write.
func (s *NoteService) mutate(ctx context.Context, userID, noteID string, fn func(*domain.Note) bool) (*domain.Note, error) {
	for attempt := 0; attempt < maxNoteWriteAttempts; attempt++ {
		note, err := s.owned(ctx, userID, noteID)
		if err != nil {
			return nil, err
		}

		if !fn(note) {
			return note, nil
		}
		note.UpdatedAt = time.Now().UTC()

		err = s.repo.Update(ctx, note)
		switch {
		case err == nil:
			return note, nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFound("Note")
		case errors.Is(err, repository.ErrConflict):
			log.Debug().Str("note_id", noteID).Int("attempt", attempt+1).Msg("note revision changed, retrying")
			continue
		default:
			return nil, err
		}
	}

	return nil, &ConflictError{Reason: "Note was modified concurrently, please retry"}
}

func requireContent(content *string) (string, error) {
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", &ValidationError{Message: msgContentRequired}
	}
	return *content, nil
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return domain.DefaultNoteTitle
	}
	return title
}

func contentTypeOrDefault(ct domain.ContentType) domain.ContentType {
	if ct == "" {
		return domain.ContentTypePlain
	}
	return ct
}
