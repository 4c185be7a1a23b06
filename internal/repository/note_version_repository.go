package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"noteforge-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type NoteVersionRepository interface {
	// Create inserts v. A second version with the same note and number
	// yields ErrConflict.
	Create(ctx context.Context, v *domain.NoteVersion) error
	FindByID(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error)
	ListByNote(ctx context.Context, noteID string) ([]*domain.NoteVersion, error)
	LatestNumber(ctx context.Context, noteID string) (int, error)
	DeleteByNote(ctx context.Context, noteID string) error
}

type noteVersionRepository struct {
	db *kivik.DB
}

type versionDoc struct {
	ID            string `json:"_id"`
	Rev           string `json:"_rev,omitempty"`
	DocType       string `json:"doc_type"`
	VersionID     string `json:"id"`
	NoteID        string `json:"note_id"`
	VersionNumber int    `json:"version_number"`
	Content       string `json:"content"`
	ContentHash   string `json:"content_hash"`
	CreatedBy     string `json:"created_by"`
	Comment       string `json:"comment"`
	CreatedAt     string `json:"created_at"`
}

func NewNoteVersionRepository(db *kivik.DB) NoteVersionRepository {
	return &noteVersionRepository{db: db}
}

// The number is part of the document id, so CouchDB itself rejects a
// duplicate (note, number) pair.
func versionDocID(noteID string, number int) string {
	return fmt.Sprintf("version:%s:%d", noteID, number)
}

func (r *noteVersionRepository) Create(ctx context.Context, v *domain.NoteVersion) error {
	doc := versionDoc{
		ID:            versionDocID(v.NoteID, v.VersionNumber),
		DocType:       docTypeVersion,
		VersionID:     v.ID,
		NoteID:        v.NoteID,
		VersionNumber: v.VersionNumber,
		Content:       v.Content,
		ContentHash:   v.ContentHash,
		CreatedBy:     v.CreatedBy,
		Comment:       v.Comment,
		CreatedAt:     formatTime(v.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if errors.Is(mapStatus(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create version: %w", err)
	}

	return nil
}

func (r *noteVersionRepository) FindByID(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error) {
	docs, err := findDocs[versionDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeVersion,
		"id":       versionID,
		"note_id":  noteID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find version: %w", err)
	}

	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	return docToVersion(&docs[0])
}

func (r *noteVersionRepository) ListByNote(ctx context.Context, noteID string) ([]*domain.NoteVersion, error) {
	docs, err := findDocs[versionDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeVersion,
		"note_id":  noteID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	versions := make([]*domain.NoteVersion, 0, len(docs))
	for i := range docs {
		v, err := docToVersion(&docs[i])
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})

	return versions, nil
}

func (r *noteVersionRepository) LatestNumber(ctx context.Context, noteID string) (int, error) {
	type numberDoc struct {
		VersionNumber int `json:"version_number"`
	}

	docs, err := findDocs[numberDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeVersion,
		"note_id":  noteID,
	}, "version_number")
	if err != nil {
		return 0, fmt.Errorf("failed to read latest version number: %w", err)
	}

	latest := 0
	for _, doc := range docs {
		if doc.VersionNumber > latest {
			latest = doc.VersionNumber
		}
	}

	return latest, nil
}

func (r *noteVersionRepository) DeleteByNote(ctx context.Context, noteID string) error {
	return purgeDocs(ctx, r.db, map[string]interface{}{
		"doc_type": docTypeVersion,
		"note_id":  noteID,
	})
}

func docToVersion(doc *versionDoc) (*domain.NoteVersion, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.NoteVersion{
		ID:            doc.VersionID,
		NoteID:        doc.NoteID,
		VersionNumber: doc.VersionNumber,
		Content:       doc.Content,
		ContentHash:   doc.ContentHash,
		CreatedBy:     doc.CreatedBy,
		Comment:       doc.Comment,
		CreatedAt:     createdAt,
	}, nil
}
