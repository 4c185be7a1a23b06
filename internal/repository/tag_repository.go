package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"noteforge-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type TagRepository interface {
	// Create yields ErrConflict when the user already owns a tag whose name
	// matches case-insensitively.
	Create(ctx context.Context, tag *domain.Tag) error
	FindByID(ctx context.Context, id string) (*domain.Tag, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Tag, error)

	AddToNote(ctx context.Context, link *domain.NoteTag) error
	RemoveFromNote(ctx context.Context, noteID, tagID string) error
	ListLinksByNote(ctx context.Context, noteID string) ([]*domain.NoteTag, error)
	DeleteLinksByNote(ctx context.Context, noteID string) error
}

type tagRepository struct {
	db *kivik.DB
}

type tagDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	TagID     string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt string `json:"created_at"`
}

type noteTagDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	NoteID    string `json:"note_id"`
	TagID     string `json:"tag_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

func NewTagRepository(db *kivik.DB) TagRepository {
	return &tagRepository{db: db}
}

// TagKey is the case-folded form of a tag name used for uniqueness.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func tagDocID(userID, name string) string {
	return fmt.Sprintf("tag:%s:%s", userID, TagKey(name))
}

func noteTagDocID(noteID, tagID string) string {
	return fmt.Sprintf("notetag:%s:%s", noteID, tagID)
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	doc := tagDoc{
		ID:        tagDocID(tag.UserID, tag.Name),
		DocType:   docTypeTag,
		TagID:     tag.ID,
		UserID:    tag.UserID,
		Name:      tag.Name,
		Color:     tag.Color,
		CreatedAt: formatTime(tag.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if errors.Is(mapStatus(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

func (r *tagRepository) FindByID(ctx context.Context, id string) (*domain.Tag, error) {
	docs, err := findDocs[tagDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeTag,
		"id":       id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}

	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	return docToTag(&docs[0])
}

func (r *tagRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Tag, error) {
	docs, err := findDocs[tagDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeTag,
		"user_id":  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	tags := make([]*domain.Tag, 0, len(docs))
	for i := range docs {
		tag, err := docToTag(&docs[i])
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].CreatedAt.Before(tags[j].CreatedAt)
	})

	return tags, nil
}

func (r *tagRepository) AddToNote(ctx context.Context, link *domain.NoteTag) error {
	doc := noteTagDoc{
		ID:        noteTagDocID(link.NoteID, link.TagID),
		DocType:   docTypeNoteTag,
		NoteID:    link.NoteID,
		TagID:     link.TagID,
		UserID:    link.UserID,
		CreatedAt: formatTime(link.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		// Already linked.
		if errors.Is(mapStatus(err), ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to link tag: %w", err)
	}

	return nil
}

func (r *tagRepository) RemoveFromNote(ctx context.Context, noteID, tagID string) error {
	var doc revDoc
	if err := r.db.Get(ctx, noteTagDocID(noteID, tagID)).ScanDoc(&doc); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get tag link: %w", err)
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to unlink tag: %w", err)
	}

	return nil
}

func (r *tagRepository) ListLinksByNote(ctx context.Context, noteID string) ([]*domain.NoteTag, error) {
	docs, err := findDocs[noteTagDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeNoteTag,
		"note_id":  noteID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tag links: %w", err)
	}

	links := make([]*domain.NoteTag, 0, len(docs))
	for _, doc := range docs {
		createdAt, err := parseTime(doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		links = append(links, &domain.NoteTag{
			NoteID:    doc.NoteID,
			TagID:     doc.TagID,
			UserID:    doc.UserID,
			CreatedAt: createdAt,
		})
	}

	return links, nil
}

func (r *tagRepository) DeleteLinksByNote(ctx context.Context, noteID string) error {
	return purgeDocs(ctx, r.db, map[string]interface{}{
		"doc_type": docTypeNoteTag,
		"note_id":  noteID,
	})
}

func docToTag(doc *tagDoc) (*domain.Tag, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.Tag{
		ID:        doc.TagID,
		UserID:    doc.UserID,
		Name:      doc.Name,
		Color:     doc.Color,
		CreatedAt: createdAt,
	}, nil
}
