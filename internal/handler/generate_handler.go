package handler

import (
	"encoding/json"
	"net/http"

	"noteforge-server/internal/service"
	"noteforge-server/pkg/response"
)

type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens"`
}

type GenerateHandler struct {
	service *service.GenerateService
}

func NewGenerateHandler(service *service.GenerateService) *GenerateHandler {
	return &GenerateHandler{
		service: service,
	}
}

func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, msgInvalidPayload)
		return
	}

	content, err := h.service.Generate(r.Context(), req.Prompt, req.MaxTokens)
	if err != nil {
		writeError(w, r, err, msgGenerateFailure)
		return
	}

	if content == "" {
		response.InternalError(w, "No content generated")
		return
	}

	response.Success(w, response.Body{"content": content})
}
