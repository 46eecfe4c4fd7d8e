package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/api/middleware"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/utils"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
	"github.com/odiabackend099/callwaiting/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UsageHandler serves the quota summary and the usage audit log
type UsageHandler struct {
	ledger    quota.Ledger
	recorder  usage.Recorder
	exporter  *report.UsageExporter
	clock     clock.Clock
	logger    *logger.Logger
	validator *validator.Validator
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(ledger quota.Ledger, recorder usage.Recorder, clk clock.Clock, log *logger.Logger, val *validator.Validator) *UsageHandler {
	return &UsageHandler{
		ledger:    ledger,
		recorder:  recorder,
		exporter:  report.NewUsageExporter(ledger, recorder),
		clock:     clk,
		logger:    log,
		validator: val,
	}
}

// Summary returns minutes used, quota and remaining for the current period
// @Summary Usage summary
// @Tags Usage
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} quota.Summary
// @Failure 404 {object} utils.ErrorResponse
// @Router /accounts/{id}/usage [get]
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.ledger.GetUsageSummary(r.Context(), accountID(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get usage summary")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, s)
}

// Record charges a completed billable action. Storage failures after
// validation are not reported to the caller.
// @Summary Record consumption
// @Tags Usage
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body dto.RecordUsageRequest true "Usage"
// @Success 202 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /accounts/{id}/usage [post]
func (h *UsageHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordUsageRequest
	if appErr := decodeAndValidate(w, r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	id := accountID(r)
	if _, err := h.ledger.GetUsageSummary(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to load account for usage")
		return
	}

	err := h.ledger.RecordConsumption(r.Context(), quota.Consumption{
		AccountID: id,
		AgentID:   req.AgentID,
		Kind:      usage.Kind(req.Kind),
		Seconds:   req.Seconds,
		CostCents: req.CostCents,
		Metadata:  req.Metadata,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record usage")
		return
	}

	middleware.AddLogField(w, "usage_kind", req.Kind)
	utils.WriteSuccess(w, http.StatusAccepted, map[string]interface{}{
		"account_id":      id,
		"kind":            req.Kind,
		"seconds":         req.Seconds,
		"charged_minutes": quota.MinutesFor(req.Seconds),
	})
}

// Events returns a page of the account's usage audit log, newest first.
// Filters: kind, since and until (RFC 3339).
func (h *UsageHandler) Events(w http.ResponseWriter, r *http.Request) {
	opts, appErr := parseEventFilters(r)
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	p := utils.ParsePaginationParams(r)
	opts.Limit = p.PageSize
	opts.Offset = p.Offset

	events, total, err := h.recorder.List(r.Context(), accountID(r), opts)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list usage events")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(events, p.Page, p.PageSize, total))
}

// Export streams the audit log and summary as an XLSX workbook
func (h *UsageHandler) Export(w http.ResponseWriter, r *http.Request) {
	opts, appErr := parseEventFilters(r)
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	id := accountID(r)
	now := h.clock.Now()

	var buf bytes.Buffer
	n, err := h.exporter.Export(r.Context(), &buf, id, opts, now)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to export usage")
		return
	}

	middleware.AddLogField(w, "exported_events", n)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="usage_%s_%s.xlsx"`, id, now.Format("20060102_150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func parseEventFilters(r *http.Request) (usage.ListOptions, *errors.AppError) {
	q := r.URL.Query()
	var opts usage.ListOptions

	if k := q.Get("kind"); k != "" {
		opts.Kind = usage.Kind(k)
		if !opts.Kind.Valid() {
			return opts, errors.BadRequest(fmt.Sprintf("Unknown usage kind %q", k))
		}
	}
	for name, dst := range map[string]*time.Time{"since": &opts.Since, "until": &opts.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.BadRequest(fmt.Sprintf("%s must be an RFC 3339 timestamp", name))
		}
		*dst = t
	}
	return opts, nil
}
