package domain

import "time"

const DefaultTagColor = "#3b82f6"

type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type NoteTag struct {
	NoteID    string    `json:"noteId"`
	TagID     string    `json:"tagId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateTagRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type TagResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (t *Tag) ToResponse() *TagResponse {
	return &TagResponse{
		ID:    t.ID,
		Name:  t.Name,
		Color: t.Color,
	}
}
