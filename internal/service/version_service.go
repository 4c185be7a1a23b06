package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository"
	"noteforge-server/pkg/hash"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const msgVersionRace = "Another version was created at the same time, please retry"

// VersionService keeps the append-only version history of notes. The
// version insert is the commit point; the note's latest-version pointer is
// advanced afterwards and only ever moves forward.
type VersionService struct {
	notes  *NoteService
	repo   repository.NoteVersionRepository
	events EventPublisher
}

func NewVersionService(notes *NoteService, repo repository.NoteVersionRepository, events EventPublisher) *VersionService {
	return &VersionService{
		notes:  notes,
		repo:   repo,
		events: events,
	}
}

func (s *VersionService) List(ctx context.Context, userID, noteID string) ([]*domain.NoteVersion, error) {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	return s.repo.ListByNote(ctx, noteID)
}

func (s *VersionService) Get(ctx context.Context, userID, noteID, versionID string) (*domain.NoteVersion, error) {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	version, err := s.repo.FindByID(ctx, noteID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Version")
		}
		return nil, err
	}

	return version, nil
}

func (s *VersionService) Create(ctx context.Context, userID, noteID string, req *domain.CreateVersionRequest) (*domain.NoteVersion, error) {
	content, err := requireContent(req.Content)
	if err != nil {
		return nil, err
	}

	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	version, err := s.append(ctx, userID, noteID, content, func(n int) string {
		if req.Comment != "" {
			return req.Comment
		}
		return fmt.Sprintf("Version %d", n)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.advancePointer(ctx, userID, version, nil); err != nil {
		// The version is committed; the next version write moves the
		// pointer past it.
		log.Warn().Err(err).
			Str("note_id", noteID).
			Int("version_number", version.VersionNumber).
			Msg("failed to advance latest version pointer")
	}

	publish(s.events, userID, EventVersionCreated, version.Summary())
	return version, nil
}

// Restore copies an old version's content into the note and records the
// copy as a new version. History is never rewritten.
func (s *VersionService) Restore(ctx context.Context, userID, noteID, versionID string) (*domain.Note, error) {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	target, err := s.repo.FindByID(ctx, noteID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Version")
		}
		return nil, err
	}

	restored, err := s.append(ctx, userID, noteID, target.Content, func(int) string {
		return fmt.Sprintf("Restored from version %d", target.VersionNumber)
	})
	if err != nil {
		return nil, err
	}

	// The restore entry stays in history even if the note write fails; a
	// retry appends another one.
	note, err := s.advancePointer(ctx, userID, restored, &target.Content)
	if err != nil {
		log.Warn().Err(err).
			Str("note_id", noteID).
			Int("version_number", restored.VersionNumber).
			Msg("restore recorded but note not updated")
		return nil, err
	}

	publish(s.events, userID, EventVersionRestored, restored.Summary())
	publish(s.events, userID, EventNoteUpdated, note.ToResponse())
	return note, nil
}

// append inserts a version numbered one past the current maximum. Two
// writers racing for the same number both reach the store; the loser gets
// a ConflictError.
func (s *VersionService) append(ctx context.Context, userID, noteID, content string, comment func(n int) string) (*domain.NoteVersion, error) {
	latest, err := s.repo.LatestNumber(ctx, noteID)
	if err != nil {
		return nil, err
	}
	next := latest + 1

	version := &domain.NoteVersion{
		ID:            uuid.New().String(),
		NoteID:        noteID,
		VersionNumber: next,
		Content:       content,
		ContentHash:   hash.Content(content),
		CreatedBy:     userID,
		Comment:       comment(next),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, version); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, &ConflictError{Reason: msgVersionRace}
		}
		return nil, err
	}

	return version, nil
}

// advancePointer points the note at version unless it already points at a
// later one. A non-nil content also replaces the note body.
func (s *VersionService) advancePointer(ctx context.Context, userID string, version *domain.NoteVersion, content *string) (*domain.Note, error) {
	return s.notes.mutate(ctx, userID, version.NoteID, func(n *domain.Note) bool {
		changed := false
		if version.VersionNumber > n.LastVersionNumber {
			id := version.ID
			n.LastVersionID = &id
			n.LastVersionNumber = version.VersionNumber
			changed = true
		}
		if content != nil {
			n.Content = *content
			n.ContentHash = hash.Content(*content)
			changed = true
		}
		return changed
	})
}
