package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/middleware"
	"noteforge-server/internal/service"
	"noteforge-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type NoteHandler struct {
	service  *service.NoteService
	validate *validator.Validate
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidPayload)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := middleware.GetUserID(r)

	note, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		writeError(w, r, err, "Failed to create note")
		return
	}

	response.Created(w, response.Body{"success": true, "note": note.ToResponse()})
}

// List accepts ?archived=true|false; anything else lists every note.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	var filter domain.NoteFilter
	if raw := r.URL.Query().Get("archived"); raw != "" {
		if archived, err := strconv.ParseBool(raw); err == nil {
			filter.Archived = &archived
		}
	}

	notes, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err, "Failed to fetch notes")
		return
	}

	out := make([]*domain.NoteResponse, len(notes))
	for i, n := range notes {
		out[i] = n.ToResponse()
	}

	response.Success(w, response.Body{"notes": out})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	userID := middleware.GetUserID(r)

	note, err := h.service.Get(r.Context(), userID, noteID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch note")
		return
	}

	response.Success(w, response.Body{"note": note.ToResponse()})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	var req domain.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidPayload)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := middleware.GetUserID(r)

	note, err := h.service.Update(r.Context(), userID, noteID, &req)
	if err != nil {
		writeError(w, r, err, "Failed to update note")
		return
	}

	response.Success(w, response.Body{"success": true, "note": note.ToResponse()})
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Delete(r.Context(), userID, noteID); err != nil {
		writeError(w, r, err, "Failed to delete note")
		return
	}

	response.Success(w, response.Body{"success": true, "message": "Note deleted successfully"})
}
