package handler

import (
	"encoding/json"
	"net/http"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/middleware"
	"noteforge-server/internal/service"
	"noteforge-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type VersionHandler struct {
	service  *service.VersionService
	validate *validator.Validate
}

func NewVersionHandler(service *service.VersionService) *VersionHandler {
	return &VersionHandler{
		service:  service,
		validate: validator.New(),
	}
}

// List returns summaries, newest first. Content is fetched per version.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	versions, err := h.service.List(r.Context(), middleware.GetUserID(r), noteID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch versions")
		return
	}

	out := make([]*domain.VersionSummary, len(versions))
	for i, v := range versions {
		out[i] = v.Summary()
	}

	response.Success(w, response.Body{"versions": out})
}

func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	var req domain.CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidPayload)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	version, err := h.service.Create(r.Context(), middleware.GetUserID(r), noteID, &req)
	if err != nil {
		writeError(w, r, err, "Failed to create version")
		return
	}

	response.Success(w, response.Body{"success": true, "version": version})
}

func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	noteID := vars["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	version, err := h.service.Get(r.Context(), middleware.GetUserID(r), noteID, vars["versionId"])
	if err != nil {
		writeError(w, r, err, "Failed to fetch version")
		return
	}

	response.Success(w, response.Body{"version": version})
}

// Restore is PUT on a version: the note takes that version's content and a
// new version records the restore.
func (h *VersionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	noteID := vars["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	note, err := h.service.Restore(r.Context(), middleware.GetUserID(r), noteID, vars["versionId"])
	if err != nil {
		writeError(w, r, err, "Failed to restore version")
		return
	}

	response.Success(w, response.Body{"success": true, "note": note.ToResponse()})
}
