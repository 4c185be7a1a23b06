package handler

import (
	"errors"
	"net/http"
	"os"

	"noteforge-server/internal/storage"
	"noteforge-server/pkg/response"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const svgMimeType = "image/svg+xml"

// UploadHandler serves stored attachment bytes. Filenames are random, so the
// URL itself is the capability.
type UploadHandler struct {
	store *storage.Local
}

func NewUploadHandler(store *storage.Local) *UploadHandler {
	return &UploadHandler{
		store: store,
	}
}

func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	f, contentType, err := h.store.Open(vars["userId"], vars["filename"])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.NotFound(w, "File not found")
			return
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to open stored file")
		response.InternalError(w, msgInternal)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.InternalError(w, msgInternal)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if contentType == svgMimeType {
		// SVG can carry script; never render it inline on this origin.
		hdr.Set("Content-Disposition", "attachment")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
