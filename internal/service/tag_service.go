package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository"

	"github.com/google/uuid"
)

const (
	msgTagNameRequired = "Tag name is required"
	msgTagExists       = "A tag with this name already exists"
)

type TagService struct {
	notes  *NoteService
	repo   repository.TagRepository
	events EventPublisher
}

func NewTagService(notes *NoteService, repo repository.TagRepository, events EventPublisher) *TagService {
	return &TagService{
		notes:  notes,
		repo:   repo,
		events: events,
	}
}

// Create adds a tag to the user's vocabulary. Names are unique per user
// ignoring case.
func (s *TagService) Create(ctx context.Context, userID string, req *domain.CreateTagRequest) (*domain.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Message: msgTagNameRequired}
	}

	color := req.Color
	if color == "" {
		color = domain.DefaultTagColor
	}

	tag := &domain.Tag{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, &ConflictError{Reason: msgTagExists}
		}
		return nil, err
	}

	publish(s.events, userID, EventTagCreated, tag.ToResponse())
	return tag, nil
}

func (s *TagService) List(ctx context.Context, userID string) ([]*domain.Tag, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *TagService) ListForNote(ctx context.Context, userID, noteID string) ([]*domain.Tag, error) {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return nil, err
	}

	links, err := s.repo.ListLinksByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []*domain.Tag{}, nil
	}

	linked := make(map[string]bool, len(links))
	for _, l := range links {
		linked[l.TagID] = true
	}

	tags, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Tag, 0, len(links))
	for _, t := range tags {
		if linked[t.ID] {
			result = append(result, t)
		}
	}

	return result, nil
}

func (s *TagService) Attach(ctx context.Context, userID, noteID, tagID string) error {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return err
	}

	if _, err := s.ownedTag(ctx, userID, tagID); err != nil {
		return err
	}

	link := &domain.NoteTag{
		NoteID:    noteID,
		TagID:     tagID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddToNote(ctx, link); err != nil {
		return err
	}

	publish(s.events, userID, EventNoteTagsChanged, &NoteTagsChangedPayload{NoteID: noteID, TagID: tagID, Linked: true})
	return nil
}

func (s *TagService) Detach(ctx context.Context, userID, noteID, tagID string) error {
	if _, err := s.notes.owned(ctx, userID, noteID); err != nil {
		return err
	}

	if err := s.repo.RemoveFromNote(ctx, noteID, tagID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Tag")
		}
		return err
	}

	publish(s.events, userID, EventNoteTagsChanged, &NoteTagsChangedPayload{NoteID: noteID, TagID: tagID, Linked: false})
	return nil
}

func (s *TagService) ownedTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	tag, err := s.repo.FindByID(ctx, tagID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Tag")
		}
		return nil, err
	}

	if tag.UserID != userID {
		return nil, notFound("Tag")
	}

	return tag, nil
}
