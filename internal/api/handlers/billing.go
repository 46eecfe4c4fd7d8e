package handlers

import (
	"net/http"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// BillingHandler serves the plan catalog and applies confirmed payments
type BillingHandler struct {
	catalog   *plan.Catalog
	accounts  account.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(catalog *plan.Catalog, accounts account.Service, log *logger.Logger, val *validator.Validator) *BillingHandler {
	return &BillingHandler{
		catalog:   catalog,
		accounts:  accounts,
		logger:    log,
		validator: val,
	}
}

// ListPlans returns the plan catalog
// @Summary List plans
// @Tags Billing
// @Produce json
// @Success 200 {array} plan.Definition
// @Router /billing/plans [get]
func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.catalog.List())
}

// Activate applies a confirmed payment: the account moves to the paid plan
// with a fresh period and zero consumption
// @Summary Activate plan
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body dto.ActivatePlanRequest true "Activation"
// @Success 200 {object} dto.AccountDTO
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /billing/activations [post]
func (h *BillingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req dto.ActivatePlanRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	a, err := h.accounts.ActivatePlan(r.Context(), req.AccountID, plan.Type(req.Plan))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to activate plan")
		return
	}

	h.logger.ForAccount(a.ID).WithFields(map[string]interface{}{
		"plan":      a.Plan,
		"reference": req.Reference,
	}).Info("Plan activated")
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Plan activated", dto.ToAccountDTO(a))
}
