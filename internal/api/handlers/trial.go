package handlers

import (
	"net/http"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// TrialHandler exposes the free-trial state machine
type TrialHandler struct {
	trials    trial.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewTrialHandler creates a new trial handler
func NewTrialHandler(trials trial.Service, log *logger.Logger, val *validator.Validator) *TrialHandler {
	return &TrialHandler{
		trials:    trials,
		logger:    log,
		validator: val,
	}
}

// Status returns the derived trial status and whether a call may start
// @Summary Trial status
// @Tags Trial
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} trial.CallEligibility
// @Failure 404 {object} utils.ErrorResponse
// @Router /accounts/{id}/trial [get]
func (h *TrialHandler) Status(w http.ResponseWriter, r *http.Request) {
	ce, err := h.trials.CanMakeCall(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get trial status")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, ce)
}

// RecordUsage charges trial seconds. Seconds that do not fit, or a trial that
// is no longer active, are refused without charging anything.
// @Summary Record trial usage
// @Tags Trial
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body dto.TrialUsageRequest true "Seconds"
// @Success 200 {object} dto.TrialUsageResponse
// @Failure 402 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /accounts/{id}/trial/usage [post]
func (h *TrialHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req dto.TrialUsageRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	id := accountID(r)
	ok, err := h.trials.RecordTrialUsage(r.Context(), id, req.Seconds)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record trial usage")
		return
	}

	status, err := h.trials.GetTrialStatus(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get trial status")
		return
	}

	if !ok {
		resp := dto.TrialUsageResponse{Recorded: false, Status: status}
		if status.State == trial.StateExpired {
			utils.WriteError(w, errors.TrialExpired(quota.MessageTrialExpired).WithDetails(resp))
			return
		}
		utils.WriteError(w, errors.TrialExhausted("Not enough free trial seconds remaining").WithDetails(resp))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.TrialUsageResponse{Recorded: true, Status: status})
}
