package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository/memory"
)

type recordedEvent struct {
	userID  string
	event   string
	payload interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(userID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, event: event, payload: payload})
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.event
	}
	return names
}

// memFileStore keeps uploads in a map and can be told to reject or fail.
type memFileStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	saved      int
	rejectOn   string
	failSave   error
	failRemove error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (s *memFileStore) Save(userID string, upload *domain.Upload) (*domain.StoredFile, error) {
	if s.failSave != nil {
		return nil, s.failSave
	}
	if upload.OriginalName == s.rejectOn {
		return nil, &domain.RejectedFileError{Reason: "File type application/x-msdownload is not allowed"}
	}

	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	name := fmt.Sprintf("f%d.txt", s.saved)
	s.files[userID+"/"+name] = data

	return &domain.StoredFile{
		Filename: name,
		Size:     int64(len(data)),
		MimeType: "text/plain",
		URL:      "/uploads/" + userID + "/" + name,
	}, nil
}

func (s *memFileStore) Remove(userID, filename string) error {
	if s.failRemove != nil {
		return s.failRemove
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, userID+"/"+filename)
	return nil
}

func (s *memFileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// tb is the part of testing.TB that *rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

type fixture struct {
	notes       *NoteService
	versions    *VersionService
	tags        *TagService
	attachments *AttachmentService

	noteRepo       *memory.NoteRepository
	versionRepo    *memory.NoteVersionRepository
	tagRepo        *memory.TagRepository
	attachmentRepo *memory.AttachmentRepository
	files          *memFileStore
	events         *eventRecorder
}

func newFixture(t tb) *fixture {
	t.Helper()

	f := &fixture{
		noteRepo:       memory.NewNoteRepository(),
		versionRepo:    memory.NewNoteVersionRepository(),
		tagRepo:        memory.NewTagRepository(),
		attachmentRepo: memory.NewAttachmentRepository(),
		files:          newMemFileStore(),
		events:         &eventRecorder{},
	}

	f.notes = NewNoteService(f.noteRepo, f.versionRepo, f.tagRepo, f.events)
	f.versions = NewVersionService(f.notes, f.versionRepo, f.events)
	f.tags = NewTagService(f.notes, f.tagRepo, f.events)
	f.attachments = NewAttachmentService(f.notes, f.attachmentRepo, f.files, f.events)
	f.notes.SetAttachmentPurger(f.attachments)

	return f
}

func (f *fixture) createNote(t tb, userID, title, content string) *domain.Note {
	t.Helper()

	note, err := f.notes.Create(context.Background(), userID, &domain.CreateNoteRequest{
		Title:   title,
		Content: strPtr(content),
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return note
}

func strPtr(s string) *string {
	return &s
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
