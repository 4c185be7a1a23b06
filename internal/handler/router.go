package handler

import (
	"net/http"

	"noteforge-server/internal/config"
	"noteforge-server/internal/middleware"

	"github.com/gorilla/mux"
)

// Handlers groups everything the router dispatches to. Nil WebSocket or
// Upload leaves the matching route unregistered.
type Handlers struct {
	Note       *NoteHandler
	Version    *VersionHandler
	Tag        *TagHandler
	Attachment *AttachmentHandler
	Generate   *GenerateHandler
	Upload     *UploadHandler
	WebSocket  *WebSocketHandler
}

func NewRouter(h Handlers, jwtSecret string, cors config.CORSConfig, uploadPrefix string) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cors.AllowedOrigins,
		cors.AllowedMethods,
		cors.AllowedHeaders,
	))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(jwtSecret))

	api.HandleFunc("/notes", h.Note.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes", h.Note.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", h.Note.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", h.Note.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/notes/{id}", h.Note.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/notes/{id}/versions", h.Version.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}/versions", h.Version.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes/{id}/versions/{versionId}", h.Version.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}/versions/{versionId}", h.Version.Restore).Methods("PUT", "OPTIONS")

	api.HandleFunc("/notes/{id}/tags", h.Tag.ListForNote).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}/tags/{tagId}", h.Tag.Attach).Methods("PUT", "OPTIONS")
	api.HandleFunc("/notes/{id}/tags/{tagId}", h.Tag.Detach).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/tags", h.Tag.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/tags", h.Tag.Create).Methods("POST", "OPTIONS")

	api.HandleFunc("/attachments", h.Attachment.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/attachments", h.Attachment.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/attachments/{id}", h.Attachment.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/generate-note", h.Generate.Generate).Methods("POST", "OPTIONS")

	if h.Upload != nil {
		r.HandleFunc(uploadPrefix+"/{userId}/{filename}", h.Upload.Serve).Methods("GET", "HEAD")
	}
	if h.WebSocket != nil {
		r.HandleFunc("/ws", h.WebSocket.HandleConnection)
	}

	r.HandleFunc("/health", healthHandler).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"noteforge-server"}`))
}
