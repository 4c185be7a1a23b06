package domain

import "time"

// NoteVersion is an immutable content snapshot. Numbers start at 1 and are
// unique per note.
type NoteVersion struct {
	ID            string    `json:"id"`
	NoteID        string    `json:"noteId"`
	VersionNumber int       `json:"versionNumber"`
	Content       string    `json:"content"`
	ContentHash   string    `json:"contentHash"`
	CreatedBy     string    `json:"createdBy"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateVersionRequest struct {
	Content *string `json:"content"`
	Comment string  `json:"comment" validate:"max=500"`
}

// VersionSummary is the list form of a version; it carries no content.
type VersionSummary struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"versionNumber"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	Comment       string    `json:"comment"`
}

func (v *NoteVersion) Summary() *VersionSummary {
	return &VersionSummary{
		ID:            v.ID,
		VersionNumber: v.VersionNumber,
		CreatedAt:     v.CreatedAt,
		CreatedBy:     v.CreatedBy,
		Comment:       v.Comment,
	}
}
