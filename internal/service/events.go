package service

// Event names published to a user's live connections.
const (
	EventNoteCreated       = "note_created"
	EventNoteUpdated       = "note_updated"
	EventNoteDeleted       = "note_deleted"
	EventVersionCreated    = "version_created"
	EventVersionRestored   = "version_restored"
	EventTagCreated        = "tag_created"
	EventNoteTagsChanged   = "note_tags_changed"
	EventAttachmentAdded   = "attachment_added"
	EventAttachmentDeleted = "attachment_deleted"
)

type EventPublisher interface {
	Publish(userID, event string, payload interface{})
}

type NoteDeletedPayload struct {
	NoteID string `json:"noteId"`
}

type AttachmentDeletedPayload struct {
	ID     string `json:"id"`
	NoteID string `json:"noteId"`
}

type NoteTagsChangedPayload struct {
	NoteID string `json:"noteId"`
	TagID  string `json:"tagId"`
	Linked bool   `json:"linked"`
}

func publish(events EventPublisher, userID, event string, payload interface{}) {
	if events != nil {
		events.Publish(userID, event, payload)
	}
}
