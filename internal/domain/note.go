package domain

import "time"

type ContentType string

const (
	ContentTypePlain ContentType = "plain"
	ContentTypeRich  ContentType = "rich"
)

const DefaultNoteTitle = "Untitled Note"

type Note struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	Title             string      `json:"title"`
	Content           string      `json:"content"`
	ContentType       ContentType `json:"contentType"`
	TemplateID        *string     `json:"templateId"`
	LastVersionID     *string     `json:"lastVersionId"`
	LastVersionNumber int         `json:"-"`
	ContentHash       string      `json:"contentHash"`
	IsArchived        bool        `json:"isArchived"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`

	// Rev is the storage revision the note was read at.
	Rev string `json:"-"`
}

type CreateNoteRequest struct {
	Title       string      `json:"title" validate:"max=500"`
	Content     *string     `json:"content"`
	ContentType ContentType `json:"contentType" validate:"omitempty,oneof=plain rich"`
	TemplateID  *string     `json:"templateId" validate:"omitempty,max=100"`
}

type UpdateNoteRequest struct {
	Title       string      `json:"title" validate:"max=500"`
	Content     *string     `json:"content"`
	ContentType ContentType `json:"contentType" validate:"omitempty,oneof=plain rich"`
	TemplateID  *string     `json:"templateId" validate:"omitempty,max=100"`
	IsArchived  *bool       `json:"isArchived"`
}

type NoteFilter struct {
	Archived *bool
}

type NoteResponse struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	ContentType   ContentType `json:"contentType"`
	TemplateID    *string     `json:"templateId"`
	LastVersionID *string     `json:"lastVersionId"`
	ContentHash   string      `json:"contentHash"`
	IsArchived    bool        `json:"isArchived"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (n *Note) ToResponse() *NoteResponse {
	return &NoteResponse{
		ID:            n.ID,
		Title:         n.Title,
		Content:       n.Content,
		ContentType:   n.ContentType,
		TemplateID:    n.TemplateID,
		LastVersionID: n.LastVersionID,
		ContentHash:   n.ContentHash,
		IsArchived:    n.IsArchived,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}
