package handlers

import (
	"net/http"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/api/middleware"
	"github.com/odiabackend099/callwaiting/internal/domain/eligibility"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// EligibilityHandler admits billable actions and settles finished calls
type EligibilityHandler struct {
	gate      eligibility.Gate
	logger    *logger.Logger
	validator *validator.Validator
}

// NewEligibilityHandler creates a new eligibility handler
func NewEligibilityHandler(gate eligibility.Gate, log *logger.Logger, val *validator.Validator) *EligibilityHandler {
	return &EligibilityHandler{
		gate:      gate,
		logger:    log,
		validator: val,
	}
}

// Check decides whether an action may start. Allowed is 200; a denial is
// 402 with the decision in details; an unreadable account is 503.
// @Summary Check eligibility
// @Tags Eligibility
// @Accept json
// @Produce json
// @Param request body dto.EligibilityRequest true "Action"
// @Success 200 {object} quota.Decision
// @Failure 402 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /eligibility [post]
func (h *EligibilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req dto.EligibilityRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	d := h.gate.CanProceed(r.Context(), req.AccountID, req.EstimatedSeconds, eligibility.Surface(req.Surface))
	middleware.AddLogField(w, "surface", req.Surface)
	middleware.AddLogField(w, "allowed", d.Allowed)

	if appErr := d.Err(); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, d)
}

// CompleteCall settles a finished call against the trial or the paid quota
// @Summary Complete call
// @Tags Eligibility
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body dto.CompleteCallRequest true "Call"
// @Success 200 {object} eligibility.CallCompletion
// @Failure 404 {object} utils.ErrorResponse
// @Router /accounts/{id}/calls/complete [post]
func (h *EligibilityHandler) CompleteCall(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteCallRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	c, err := h.gate.CompleteCall(r.Context(), accountID(r), req.AgentID, req.DurationSeconds)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to complete call")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, c)
}
