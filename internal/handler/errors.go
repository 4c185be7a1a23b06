package handler

import (
	"errors"
	"net/http"

	"noteforge-server/internal/middleware"
	"noteforge-server/internal/service"
	"noteforge-server/pkg/response"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidPayload  = "Invalid request payload"
	msgInvalidNoteID   = "Invalid note ID"
	msgInternal        = "Internal server error"
	msgInvalidAPIKey   = "Invalid API key. Please check your OpenAI API key."
	msgRateLimited     = "Rate limit exceeded. Please try again later."
	msgGenerateFailure = "Failed to generate text. Please try again."
)

// writeError maps a service error onto a status code. fallback is the
// message used for unexpected failures; the cause is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		response.BadRequest(w, validation.Message)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrGeneratorAuth):
		response.Unauthorized(w, msgInvalidAPIKey)
	case errors.Is(err, service.ErrGeneratorRateLimited):
		response.TooManyRequests(w, msgRateLimited)
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("user_id", middleware.GetUserID(r)).
			Msg("request failed")
		response.InternalError(w, fallback)
	}
}

func validNoteID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
