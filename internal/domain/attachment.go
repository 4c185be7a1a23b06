package domain

import (
	"errors"
	"io"
	"time"
)

var ErrFileRejected = errors.New("file rejected")

// RejectedFileError carries a client-facing reason for refusing an upload.
type RejectedFileError struct {
	Reason string
}

func (e *RejectedFileError) Error() string {
	return e.Reason
}

func (e *RejectedFileError) Is(target error) bool {
	return target == ErrFileRejected
}

type Attachment struct {
	ID           string    `json:"id"`
	NoteID       string    `json:"noteId"`
	UserID       string    `json:"userId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StoredFile describes bytes accepted by a file store.
type StoredFile struct {
	Filename string
	Size     int64
	MimeType string
	URL      string
}

// Upload is one file received from a client.
type Upload struct {
	OriginalName string
	Size         int64
	Reader       io.Reader
}
