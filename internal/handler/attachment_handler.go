package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"sort"

	"noteforge-server/internal/domain"
	"noteforge-server/internal/middleware"
	"noteforge-server/internal/service"
	"noteforge-server/pkg/response"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Parts above this size are spooled to temporary files by net/http.
const multipartMemory = 32 << 20

const msgUploadTooLarge = "Upload is too large"

type AttachmentHandler struct {
	service     *service.AttachmentService
	maxBodySize int64
}

// NewAttachmentHandler caps whole upload bodies at maxBodySize bytes; zero
// disables the cap.
func NewAttachmentHandler(service *service.AttachmentService, maxBodySize int64) *AttachmentHandler {
	return &AttachmentHandler{
		service:     service,
		maxBodySize: maxBodySize,
	}
}

// Create accepts every file part of a multipart body for ?noteId=.
func (h *AttachmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	noteID := r.URL.Query().Get("noteId")

	if h.maxBodySize > 0 {
		if r.ContentLength > h.maxBodySize {
			response.Error(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		response.BadRequest(w, "Invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	uploads, closeAll, err := collectUploads(r.MultipartForm)
	defer closeAll()
	if err != nil {
		log.Error().Err(err).Str("note_id", noteID).Msg("failed to open uploaded file")
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	attachments, err := h.service.Create(r.Context(), middleware.GetUserID(r), noteID, uploads)
	if err != nil {
		writeError(w, r, err, "Failed to upload attachments")
		return
	}

	response.Success(w, response.Body{"attachments": attachments})
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	noteID := r.URL.Query().Get("noteId")

	attachments, err := h.service.List(r.Context(), middleware.GetUserID(r), noteID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch attachments")
		return
	}

	response.Success(w, response.Body{"attachments": attachments})
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		response.BadRequest(w, "Attachment ID is required")
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), id); err != nil {
		writeError(w, r, err, "Failed to delete attachment")
		return
	}

	response.Success(w, response.Body{"success": true, "message": "Attachment deleted successfully"})
}

// collectUploads opens every file part in field-name order. The returned
// func closes whatever was opened.
func collectUploads(form *multipart.Form) ([]*domain.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	if form == nil {
		return nil, closeAll, nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var uploads []*domain.Upload
	for _, field := range fields {
		for _, header := range form.File[field] {
			f, err := header.Open()
			if err != nil {
				return nil, closeAll, err
			}
			opened = append(opened, f)

			uploads = append(uploads, &domain.Upload{
				OriginalName: header.Filename,
				Size:         header.Size,
				Reader:       f,
			})
		}
	}

	return uploads, closeAll, nil
}
