package handlers

import (
	"net/http"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// AccountHandler handles account lifecycle endpoints
type AccountHandler struct {
	service   account.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service account.Service, log *logger.Logger, val *validator.Validator) *AccountHandler {
	return &AccountHandler{
		service:   service,
		logger:    log,
		validator: val,
	}
}

// Create signs up a trial account
// @Summary Sign up
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body dto.CreateAccountRequest true "Signup"
// @Success 201 {object} dto.AccountDTO
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	a, err := h.service.Signup(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to sign up account")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.ToAccountDTO(a))
}

// List returns accounts with pagination
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePaginationParams(r)

	accounts, total, err := h.service.List(r.Context(), p.PageSize, p.Offset)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list accounts")
		return
	}

	dtos := make([]dto.AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = dto.ToAccountDTO(a)
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(dtos, p.Page, p.PageSize, total))
}

// Get returns one account
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} dto.AccountDTO
// @Failure 404 {object} utils.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.ToAccountDTO(a))
}

// ResetPeriod zeroes consumption and starts the next billing period
func (h *AccountHandler) ResetPeriod(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.ResetPeriod(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to reset billing period")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Billing period reset", dto.ToAccountDTO(a))
}
