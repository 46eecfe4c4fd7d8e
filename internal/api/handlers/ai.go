package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/integrations"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// MeteredAI is a provider client that gates and charges every call
type MeteredAI interface {
	Complete(ctx context.Context, accountID, agentID, prompt string) (*integrations.Completion, error)
	Synthesize(ctx context.Context, accountID, agentID, text string) (*integrations.Speech, error)
}

// AIHandler exposes metered inference and speech
type AIHandler struct {
	ai        MeteredAI
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAIHandler creates a new AI handler
func NewAIHandler(ai MeteredAI, log *logger.Logger, val *validator.Validator) *AIHandler {
	return &AIHandler{
		ai:        ai,
		logger:    log,
		validator: val,
	}
}

// Inference runs a metered chat completion
// @Summary Metered completion
// @Tags AI
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body dto.InferenceRequest true "Prompt"
// @Success 200 {object} integrations.Completion
// @Failure 402 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /accounts/{id}/inference [post]
func (h *AIHandler) Inference(w http.ResponseWriter, r *http.Request) {
	var req dto.InferenceRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	out, err := h.ai.Complete(r.Context(), accountID(r), req.AgentID, req.Prompt)
	if err != nil {
		respondServiceError(w, h.logger, err, "Inference failed")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, out)
}

// Speech runs a metered synthesis and returns the audio
func (h *AIHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req dto.SpeechRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	out, err := h.ai.Synthesize(r.Context(), accountID(r), req.AgentID, req.Text)
	if err != nil {
		respondServiceError(w, h.logger, err, "Speech synthesis failed")
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("X-Seconds-Charged", strconv.FormatInt(out.SecondsCharged, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Audio)
}
