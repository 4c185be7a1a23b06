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

type TagHandler struct {
	service  *service.TagService
	validate *validator.Validate
}

func NewTagHandler(service *service.TagService) *TagHandler {
	return &TagHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidPayload)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tag, err := h.service.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create tag")
		return
	}

	response.Success(w, response.Body{"success": true, "tag": tag.ToResponse()})
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, r, err, "Failed to fetch tags")
		return
	}

	response.Success(w, response.Body{"tags": toTagResponses(tags)})
}

func (h *TagHandler) ListForNote(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if !validNoteID(noteID) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	tags, err := h.service.ListForNote(r.Context(), middleware.GetUserID(r), noteID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch note tags")
		return
	}

	response.Success(w, response.Body{"tags": toTagResponses(tags)})
}

func (h *TagHandler) Attach(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !validNoteID(vars["id"]) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	if err := h.service.Attach(r.Context(), middleware.GetUserID(r), vars["id"], vars["tagId"]); err != nil {
		writeError(w, r, err, "Failed to tag note")
		return
	}

	response.Success(w, response.Body{"success": true})
}

func (h *TagHandler) Detach(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !validNoteID(vars["id"]) {
		response.BadRequest(w, msgInvalidNoteID)
		return
	}

	if err := h.service.Detach(r.Context(), middleware.GetUserID(r), vars["id"], vars["tagId"]); err != nil {
		writeError(w, r, err, "Failed to untag note")
		return
	}

	response.Success(w, response.Body{"success": true})
}

func toTagResponses(tags []*domain.Tag) []*domain.TagResponse {
	out := make([]*domain.TagResponse, len(tags))
	for i, t := range tags {
		out[i] = t.ToResponse()
	}
	return out
}
