// Package memory implements the repository interfaces over process-local
// maps. It mirrors the CouchDB uniqueness and revision rules so services
// behave the same against either backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/repository"
)

// row pairs a stored value with its insertion sequence so listings stay
// deterministic when timestamps tie.
type row[T any] struct {
	value T
	seq   int
}

type NoteRepository struct {
	mu    sync.RWMutex
	notes map[string]row[domain.Note]
	revs  int
	seq   int
}

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{notes: make(map[string]row[domain.Note])}
}

func (r *NoteRepository) nextRev() string {
	r.revs++
	return fmt.Sprintf("%d-mem", r.revs)
}

func (r *NoteRepository) Create(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[note.ID]; exists {
		return repository.ErrConflict
	}

	note.Rev = r.nextRev()
	r.seq++
	r.notes[note.ID] = row[domain.Note]{value: *note, seq: r.seq}
	return nil
}

func (r *NoteRepository) FindByID(_ context.Context, id string) (*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.notes[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	note := stored.value
	return &note, nil
}

func (r *NoteRepository) ListByUser(_ context.Context, userID string, filter domain.NoteFilter) ([]*domain.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]row[domain.Note], 0)
	for _, n := range r.notes {
		if n.value.UserID != userID {
			continue
		}
		if filter.Archived != nil && n.value.IsArchived != *filter.Archived {
			continue
		}
		rows = append(rows, n)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.CreatedAt.Equal(rows[j].value.CreatedAt) {
			return rows[i].value.CreatedAt.After(rows[j].value.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	return values(rows), nil
}

func (r *NoteRepository) Update(_ context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.notes[note.ID]
	if !exists {
		return repository.ErrNotFound
	}
	if current.value.Rev != note.Rev {
		return repository.ErrConflict
	}

	note.Rev = r.nextRev()
	r.notes[note.ID] = row[domain.Note]{value: *note, seq: current.seq}
	return nil
}

func (r *NoteRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[id]; !exists {
		return repository.ErrNotFound
	}
	delete(r.notes, id)
	return nil
}

type NoteVersionRepository struct {
	mu       sync.RWMutex
	versions map[string]map[int]domain.NoteVersion
}

func NewNoteVersionRepository() *NoteVersionRepository {
	return &NoteVersionRepository{versions: make(map[string]map[int]domain.NoteVersion)}
}

func (r *NoteVersionRepository) Create(_ context.Context, v *domain.NoteVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byNumber := r.versions[v.NoteID]
	if byNumber == nil {
		byNumber = make(map[int]domain.NoteVersion)
		r.versions[v.NoteID] = byNumber
	}
	if _, exists := byNumber[v.VersionNumber]; exists {
		return repository.ErrConflict
	}

	byNumber[v.VersionNumber] = *v
	return nil
}

func (r *NoteVersionRepository) FindByID(_ context.Context, noteID, versionID string) (*domain.NoteVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.versions[noteID] {
		if v.ID == versionID {
			found := v
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *NoteVersionRepository) ListByNote(_ context.Context, noteID string) ([]*domain.NoteVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := make([]*domain.NoteVersion, 0, len(r.versions[noteID]))
	for _, v := range r.versions[noteID] {
		version := v
		versions = append(versions, &version)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	return versions, nil
}

func (r *NoteVersionRepository) LatestNumber(_ context.Context, noteID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := 0
	for n := range r.versions[noteID] {
		if n > latest {
			latest = n
		}
	}
	return latest, nil
}

func (r *NoteVersionRepository) DeleteByNote(_ context.Context, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.versions, noteID)
	return nil
}

type TagRepository struct {
	mu    sync.RWMutex
	tags  map[string]row[domain.Tag] // keyed by user and folded name
	links map[string]domain.NoteTag
	seq   int
}

func NewTagRepository() *TagRepository {
	return &TagRepository{
		tags:  make(map[string]row[domain.Tag]),
		links: make(map[string]domain.NoteTag),
	}
}

func (r *TagRepository) Create(_ context.Context, tag *domain.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tag.UserID + "\x00" + repository.TagKey(tag.Name)
	if _, exists := r.tags[key]; exists {
		return repository.ErrConflict
	}

	r.seq++
	r.tags[key] = row[domain.Tag]{value: *tag, seq: r.seq}
	return nil
}

func (r *TagRepository) FindByID(_ context.Context, id string) (*domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tags {
		if t.value.ID == id {
			tag := t.value
			return &tag, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TagRepository) ListByUser(_ context.Context, userID string) ([]*domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]row[domain.Tag], 0)
	for _, t := range r.tags {
		if t.value.UserID == userID {
			rows = append(rows, t)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	return values(rows), nil
}

func (r *TagRepository) AddToNote(_ context.Context, link *domain.NoteTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := link.NoteID + "\x00" + link.TagID
	if _, exists := r.links[key]; !exists {
		r.links[key] = *link
	}
	return nil
}

func (r *TagRepository) RemoveFromNote(_ context.Context, noteID, tagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := noteID + "\x00" + tagID
	if _, exists := r.links[key]; !exists {
		return repository.ErrNotFound
	}
	delete(r.links, key)
	return nil
}

func (r *TagRepository) ListLinksByNote(_ context.Context, noteID string) ([]*domain.NoteTag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]*domain.NoteTag, 0)
	for _, l := range r.links {
		if l.NoteID == noteID {
			link := l
			links = append(links, &link)
		}
	}
	return links, nil
}

func (r *TagRepository) DeleteLinksByNote(_ context.Context, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, l := range r.links {
		if l.NoteID == noteID {
			delete(r.links, key)
		}
	}
	return nil
}

type AttachmentRepository struct {
	mu          sync.RWMutex
	attachments map[string]row[domain.Attachment]
	seq         int
}

func NewAttachmentRepository() *AttachmentRepository {
	return &AttachmentRepository{attachments: make(map[string]row[domain.Attachment])}
}

func (r *AttachmentRepository) Create(_ context.Context, a *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attachments[a.ID]; exists {
		return repository.ErrConflict
	}
	r.seq++
	r.attachments[a.ID] = row[domain.Attachment]{value: *a, seq: r.seq}
	return nil
}

func (r *AttachmentRepository) FindByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.attachments[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	a := stored.value
	return &a, nil
}

func (r *AttachmentRepository) ListByNote(_ context.Context, noteID, userID string) ([]*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]row[domain.Attachment], 0)
	for _, a := range r.attachments {
		if a.value.NoteID == noteID && a.value.UserID == userID {
			rows = append(rows, a)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	return values(rows), nil
}

func (r *AttachmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.attachments[id]; !exists {
		return repository.ErrNotFound
	}
	delete(r.attachments, id)
	return nil
}

func values[T any](rows []row[T]) []*T {
	out := make([]*T, 0, len(rows))
	for i := range rows {
		v := rows[i].value
		out = append(out, &v)
	}
	return out
}

var (
	_ repository.NoteRepository        = (*NoteRepository)(nil)
	_ repository.NoteVersionRepository = (*NoteVersionRepository)(nil)
	_ repository.TagRepository         = (*TagRepository)(nil)
	_ repository.AttachmentRepository  = (*AttachmentRepository)(nil)
)
