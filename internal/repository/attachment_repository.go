package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"noteforge-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type AttachmentRepository interface {
	Create(ctx context.Context, a *domain.Attachment) error
	FindByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByNote(ctx context.Context, noteID, userID string) ([]*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	db *kivik.DB
}

type attachmentDoc struct {
	ID           string `json:"_id"`
	Rev          string `json:"_rev,omitempty"`
	DocType      string `json:"doc_type"`
	AttachmentID string `json:"id"`
	NoteID       string `json:"note_id"`
	UserID       string `json:"user_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	CreatedAt    string `json:"created_at"`
}

func NewAttachmentRepository(db *kivik.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func attachmentDocID(id string) string {
	return fmt.Sprintf("attachment:%s", id)
}

func (r *attachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	doc := attachmentDoc{
		ID:           attachmentDocID(a.ID),
		DocType:      docTypeAttachment,
		AttachmentID: a.ID,
		NoteID:       a.NoteID,
		UserID:       a.UserID,
		Filename:     a.Filename,
		OriginalName: a.OriginalName,
		MimeType:     a.MimeType,
		Size:         a.Size,
		URL:          a.URL,
		CreatedAt:    formatTime(a.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if errors.Is(mapStatus(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	return nil
}

func (r *attachmentRepository) FindByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var doc attachmentDoc
	if err := r.db.Get(ctx, attachmentDocID(id)).ScanDoc(&doc); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}

	return docToAttachment(&doc)
}

func (r *attachmentRepository) ListByNote(ctx context.Context, noteID, userID string) ([]*domain.Attachment, error) {
	docs, err := findDocs[attachmentDoc](ctx, r.db, map[string]interface{}{
		"doc_type": docTypeAttachment,
		"note_id":  noteID,
		"user_id":  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	attachments := make([]*domain.Attachment, 0, len(docs))
	for i := range docs {
		a, err := docToAttachment(&docs[i])
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}

	sort.SliceStable(attachments, func(i, j int) bool {
		return attachments[i].CreatedAt.Before(attachments[j].CreatedAt)
	})

	return attachments, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	var doc revDoc
	if err := r.db.Get(ctx, attachmentDocID(id)).ScanDoc(&doc); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get attachment for delete: %w", err)
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		if errors.Is(mapStatus(err), ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	return nil
}

func docToAttachment(doc *attachmentDoc) (*domain.Attachment, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.Attachment{
		ID:           doc.AttachmentID,
		NoteID:       doc.NoteID,
		UserID:       doc.UserID,
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		Size:         doc.Size,
		URL:          doc.URL,
		CreatedAt:    createdAt,
	}, nil
}
