package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"noteforge-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	FindByID(ctx context.Context, id string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string, filter domain.NoteFilter) ([]*domain.Note, error)
	// Update writes note at note.Rev. A stale revision yields ErrConflict.
	Update(ctx context.Context, note *domain.Note) error
	Delete(ctx context.Context, id string) error
}

type noteRepository struct {
	db *kivik.DB
}

type noteDoc struct {
	ID                string  `json:"_id"`
	Rev               string  `json:"_rev,omitempty"`
	DocType           string  `json:"doc_type"`
	NoteID            string  `json:"id"`
	UserID            string  `json:"user_id"`
	Title             string  `json:"title"`
	Content           string  `json:"content"`
	ContentType       string  `json:"content_type"`
	TemplateID        *string `json:"template_id,omitempty"`
	LastVersionID     *string `json:"last_version_id,omitempty"`
	LastVersionNumber int     `json:"last_version_number"`
	ContentHash       string  `json:"content_hash"`
	IsArchived        bool    `json:"is_archived"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func NewNoteRepository(db *kivik.DB) NoteRepository {
	return &noteRepository{db: db}
}

func noteDocID(id string) string {
	return fmt.Sprintf("note:%s", id)
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	doc := noteToDoc(note)

	rev, err := r.db.Put(ctx, doc.ID, doc)
	if err != nil {
		if errors.Is(mapStatus(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create note: %w", err)
	}

	note.Rev = rev
	return nil
}

func (r *noteRepository) FindByID(ctx context.Context, id string) (*domain.Note, error) {
	var doc noteDoc
	if err := r.db.Get(ctx, noteDocID(id)).ScanDoc(&doc); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}

	return docToNote(&doc)
}

func (r *noteRepository) ListByUser(ctx context.Context, userID string, filter domain.NoteFilter) ([]*domain.Note, error) {
	selector := map[string]interface{}{
		"doc_type": docTypeNote,
		"user_id":  userID,
	}
	if filter.Archived != nil {
		selector["is_archived"] = *filter.Archived
	}

	docs, err := findDocs[noteDoc](ctx, r.db, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]*domain.Note, 0, len(docs))
	for i := range docs {
		note, err := docToNote(&docs[i])
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})

	return notes, nil
}

func (r *noteRepository) Update(ctx context.Context, note *domain.Note) error {
	if note.Rev == "" {
		return fmt.Errorf("failed to update note %s: missing revision", note.ID)
	}

	doc := noteToDoc(note)
	doc.Rev = note.Rev

	rev, err := r.db.Put(ctx, doc.ID, doc)
	if err != nil {
		switch mapped := mapStatus(err); {
		case errors.Is(mapped, ErrConflict), errors.Is(mapped, ErrNotFound):
			return mapped
		}
		return fmt.Errorf("failed to update note: %w", err)
	}

	note.Rev = rev
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, id string) error {
	var doc revDoc
	if err := r.db.Get(ctx, noteDocID(id)).ScanDoc(&doc); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get note for delete: %w", err)
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		switch mapped := mapStatus(err); {
		case errors.Is(mapped, ErrConflict), errors.Is(mapped, ErrNotFound):
			return mapped
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return nil
}

func noteToDoc(note *domain.Note) noteDoc {
	return noteDoc{
		ID:                noteDocID(note.ID),
		DocType:           docTypeNote,
		NoteID:            note.ID,
		UserID:            note.UserID,
		Title:             note.Title,
		Content:           note.Content,
		ContentType:       string(note.ContentType),
		TemplateID:        note.TemplateID,
		LastVersionID:     note.LastVersionID,
		LastVersionNumber: note.LastVersionNumber,
		ContentHash:       note.ContentHash,
		IsArchived:        note.IsArchived,
		CreatedAt:         formatTime(note.CreatedAt),
		UpdatedAt:         formatTime(note.UpdatedAt),
	}
}

func docToNote(doc *noteDoc) (*domain.Note, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Note{
		ID:                doc.NoteID,
		UserID:            doc.UserID,
		Title:             doc.Title,
		Content:           doc.Content,
		ContentType:       domain.ContentType(doc.ContentType),
		TemplateID:        doc.TemplateID,
		LastVersionID:     doc.LastVersionID,
		LastVersionNumber: doc.LastVersionNumber,
		ContentHash:       doc.ContentHash,
		IsArchived:        doc.IsArchived,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		Rev:               doc.Rev,
	}, nil
}
