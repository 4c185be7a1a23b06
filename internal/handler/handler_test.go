package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"noteforge-server/internal/config"
	"noteforge-server/internal/repository/memory"
	"noteforge-server/internal/service"
	"noteforge-server/internal/storage"
	"noteforge-server/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret        = "test-secret"
	testMaxUploadBody = 64 << 10
)

type fakeGenerator struct {
	content string
	err     error
}

func (g *fakeGenerator) Generate(context.Context, string, int) (string, error) {
	return g.content, g.err
}

type testServer struct {
	handler   http.Handler
	generator *fakeGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	versionRepo := memory.NewNoteVersionRepository()
	tagRepo := memory.NewTagRepository()
	files := storage.NewLocal(t.TempDir(), "/uploads", 1024*1024)
	gen := &fakeGenerator{content: "generated"}

	notes := service.NewNoteService(memory.NewNoteRepository(), versionRepo, tagRepo, nil)
	attachments := service.NewAttachmentService(notes, memory.NewAttachmentRepository(), files, nil)
	notes.SetAttachmentPurger(attachments)

	r := NewRouter(Handlers{
		Note:       NewNoteHandler(notes),
		Version:    NewVersionHandler(service.NewVersionService(notes, versionRepo, nil)),
		Tag:        NewTagHandler(service.NewTagService(notes, tagRepo, nil)),
		Attachment: NewAttachmentHandler(attachments, testMaxUploadBody),
		Generate:   NewGenerateHandler(service.NewGenerateService(gen, 2000)),
		Upload:     NewUploadHandler(files),
	}, testSecret, config.CORSConfig{
		AllowedOrigins: "*",
		AllowedMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowedHeaders: "Content-Type,Authorization",
	}, "/uploads")

	return &testServer{handler: r, generator: gen}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.GenerateToken(userID, userID+"@example.com", time.Hour, testSecret)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createNote(t *testing.T, userID, content string) string {
	t.Helper()
	rec := s.do(t, userID, http.MethodPost, "/api/notes", map[string]string{"title": "T", "content": content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["note"].(map[string]interface{})["id"].(string)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/notes", "/api/tags", "/api/attachments?noteId=x"} {
		rec := s.do(t, "", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Unauthorized", decode(t, rec)["error"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestNoteLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "user1", http.MethodPost, "/api/notes", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	note := body["note"].(map[string]interface{})
	assert.Equal(t, "Untitled Note", note["title"])
	assert.Equal(t, "plain", note["contentType"])
	assert.NotContains(t, note, "userId")
	id := note["id"].(string)

	rec = s.do(t, "user1", http.MethodGet, "/api/notes/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decode(t, rec)["note"].(map[string]interface{})["content"])

	rec = s.do(t, "user1", http.MethodPut, "/api/notes/"+id, map[string]interface{}{"title": "T2", "content": "bye", "isArchived": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bye", decode(t, rec)["note"].(map[string]interface{})["content"])

	rec = s.do(t, "user1", http.MethodGet, "/api/notes?archived=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["notes"], 0)

	rec = s.do(t, "user1", http.MethodGet, "/api/notes", nil)
	assert.Len(t, decode(t, rec)["notes"], 1)

	rec = s.do(t, "user1", http.MethodDelete, "/api/notes/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note deleted successfully", decode(t, rec)["message"])

	rec = s.do(t, "user1", http.MethodGet, "/api/notes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoteErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "alice", "secret")

	tests := []struct {
		name    string
		userID  string
		method  string
		path    string
		body    interface{}
		status  int
		message string
	}{
		{"empty content", "alice", http.MethodPost, "/api/notes", map[string]string{"content": "  "}, http.StatusBadRequest, "Content cannot be empty"},
		{"bad content type", "alice", http.MethodPost, "/api/notes", map[string]string{"content": "x", "contentType": "html"}, http.StatusBadRequest, ""},
		{"invalid id", "alice", http.MethodGet, "/api/notes/not-a-uuid", nil, http.StatusBadRequest, "Invalid note ID"},
		{"invalid id on delete", "alice", http.MethodDelete, "/api/notes/123", nil, http.StatusBadRequest, "Invalid note ID"},
		{"stranger get", "bob", http.MethodGet, "/api/notes/" + id, nil, http.StatusNotFound, "Note not found"},
		{"stranger update", "bob", http.MethodPut, "/api/notes/" + id, map[string]string{"content": "x"}, http.StatusNotFound, "Note not found"},
		{"stranger delete", "bob", http.MethodDelete, "/api/notes/" + id, nil, http.StatusNotFound, "Note not found"},
		{"update without content", "alice", http.MethodPut, "/api/notes/" + id, map[string]string{"title": "x"}, http.StatusBadRequest, "Content cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.userID, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decode(t, rec)["error"])
			}
		})
	}
}

func TestVersionEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")
	base := "/api/notes/" + id + "/versions"

	rec := s.do(t, "user1", http.MethodPost, base, map[string]string{"content": "hello v2", "comment": "edit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v1 := decode(t, rec)["version"].(map[string]interface{})
	assert.EqualValues(t, 1, v1["versionNumber"])

	rec = s.do(t, "user1", http.MethodPost, base, map[string]string{"content": "hello v3"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "user1", http.MethodPut, base+"/"+v1["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hello v2", decode(t, rec)["note"].(map[string]interface{})["content"])

	rec = s.do(t, "user1", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	versions := decode(t, rec)["versions"].([]interface{})
	require.Len(t, versions, 3)
	newest := versions[0].(map[string]interface{})
	assert.EqualValues(t, 3, newest["versionNumber"])
	assert.Equal(t, "Restored from version 1", newest["comment"])
	assert.NotContains(t, newest, "content")

	rec = s.do(t, "user1", http.MethodGet, base+"/"+v1["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello v2", decode(t, rec)["version"].(map[string]interface{})["content"])

	rec = s.do(t, "user1", http.MethodGet, base+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Version not found", decode(t, rec)["error"])

	rec = s.do(t, "user1", http.MethodPost, base, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "user2", http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTagEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")

	rec := s.do(t, "user1", http.MethodPost, "/api/tags", map[string]string{"name": "Work"})
	require.Equal(t, http.StatusOK, rec.Code)
	tag := decode(t, rec)["tag"].(map[string]interface{})
	assert.Equal(t, "#3b82f6", tag["color"])

	rec = s.do(t, "user1", http.MethodPost, "/api/tags", map[string]string{"name": "work"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A tag with this name already exists", decode(t, rec)["error"])

	rec = s.do(t, "user1", http.MethodPost, "/api/tags", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "user1", http.MethodPost, "/api/tags", map[string]string{"name": "Bad", "color": "blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "user1", http.MethodPut, "/api/notes/"+id+"/tags/"+tag["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "user1", http.MethodGet, "/api/notes/"+id+"/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["tags"], 1)

	rec = s.do(t, "user1", http.MethodDelete, "/api/notes/"+id+"/tags/"+tag["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "user1", http.MethodGet, "/api/tags", nil)
	assert.Len(t, decode(t, rec)["tags"], 1)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, userID, noteID string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/attachments?noteId="+noteID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token(t, userID))

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestAttachmentEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")

	rec := s.upload(t, "user1", id, map[string]string{"notes.txt": "plain text body"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	attachments := decode(t, rec)["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]interface{})
	assert.Equal(t, "notes.txt", attachment["originalName"])
	assert.Equal(t, "text/plain", attachment["mimeType"])

	url := attachment["url"].(string)
	rec = s.do(t, "", http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "plain text body", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	rec = s.do(t, "user1", http.MethodGet, "/api/attachments?noteId="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["attachments"], 1)

	rec = s.do(t, "user2", http.MethodDelete, "/api/attachments/"+attachment["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, "user1", http.MethodDelete, "/api/attachments/"+attachment["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Attachment deleted successfully", decode(t, rec)["message"])

	rec = s.do(t, "", http.MethodGet, url, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, "user1", http.MethodGet, "/api/attachments?noteId="+id, nil)
	assert.Len(t, decode(t, rec)["attachments"], 0)
}

func TestUploadsServedWithoutActiveContent(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")

	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.domain)</script></svg>`
	rec := s.upload(t, "user1", id, map[string]string{"x.svg": svg, "notes.txt": "plain"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sawSVG := false
	for _, a := range decode(t, rec)["attachments"].([]interface{}) {
		attachment := a.(map[string]interface{})

		rec = s.do(t, "", http.MethodGet, attachment["url"].(string), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "default-src 'none'; sandbox", rec.Header().Get("Content-Security-Policy"))

		if attachment["mimeType"] == "image/svg+xml" {
			sawSVG = true
			assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))
		} else {
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
		}
	}
	assert.True(t, sawSVG)
}

func TestAttachmentErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")

	rec := s.upload(t, "user1", "", map[string]string{"a.txt": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Note ID is required", decode(t, rec)["error"])

	rec = s.upload(t, "user1", id, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files uploaded", decode(t, rec)["error"])

	rec = s.upload(t, "user1", id, map[string]string{"page.html": "<html><body>hi</body></html>"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "is not allowed")

	rec = s.upload(t, "user2", id, map[string]string{"a.txt": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, "user1", http.MethodGet, "/api/attachments", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttachmentBodyCap(t *testing.T) {
	s := newTestServer(t)
	id := s.createNote(t, "user1", "hello")

	big := strings.Repeat("a", testMaxUploadBody)
	rec := s.upload(t, "user1", id, map[string]string{"big.txt": big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Upload is too large", decode(t, rec)["error"])

	rec = s.do(t, "user1", http.MethodGet, "/api/attachments?noteId="+id, nil)
	assert.Len(t, decode(t, rec)["attachments"], 0)
}

func TestGenerateNote(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		content string
		err     error
		status  int
		message string
	}{
		{"ok", "todo list", "generated", nil, http.StatusOK, ""},
		{"empty prompt", " ", "", nil, http.StatusBadRequest, "Prompt cannot be empty"},
		{"bad key", "x", "", service.ErrGeneratorAuth, http.StatusUnauthorized, msgInvalidAPIKey},
		{"rate limited", "x", "", fmt.Errorf("wrapped: %w", service.ErrGeneratorRateLimited), http.StatusTooManyRequests, msgRateLimited},
		{"upstream failure", "x", "", fmt.Errorf("boom"), http.StatusInternalServerError, msgGenerateFailure},
		{"no content", "x", "", nil, http.StatusInternalServerError, "No content generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.generator.content = tt.content
			s.generator.err = tt.err

			rec := s.do(t, "user1", http.MethodPost, "/api/generate-note", map[string]interface{}{"prompt": tt.prompt})
			assert.Equal(t, tt.status, rec.Code)

			body := decode(t, rec)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			} else {
				assert.Equal(t, tt.content, body["content"])
			}
		})
	}
}
