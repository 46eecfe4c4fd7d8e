package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
)

func TestBillingHandler_ListPlans(t *testing.T) {
	f := newAPIFixture(t)

	rr := call(t, f.billing.ListPlans, http.MethodGet, "/api/v1/billing/plans", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var plans []plan.Definition
	decodeData(t, rr, &plans)
	require.Len(t, plans, 4)
	assert.Equal(t, plan.TypeTrial, plans[0].Type)
	assert.Equal(t, int64(500), plans[1].Minutes)
}

func TestBillingHandler_Activate(t *testing.T) {
	tests := []struct {
		name           string
		req            dto.ActivatePlanRequest
		expectedStatus int
	}{
		{"upgrade to pro", dto.ActivatePlanRequest{AccountID: "acct-1", Plan: "pro", Reference: "flw-123"}, http.StatusOK},
		{"unknown plan", dto.ActivatePlanRequest{AccountID: "acct-1", Plan: "platinum"}, http.StatusBadRequest},
		{"trial is not a paid plan", dto.ActivatePlanRequest{AccountID: "acct-1", Plan: "trial"}, http.StatusBadRequest},
		{"unknown account", dto.ActivatePlanRequest{AccountID: "ghost", Plan: "basic"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.trialAccount(t, "acct-1", 300, 100)

			rr := call(t, f.billing.Activate, http.MethodPost, "/api/v1/billing/activations", "", tt.req)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var a dto.AccountDTO
			decodeData(t, rr, &a)
			assert.Equal(t, plan.TypePro, a.Plan)
			assert.Equal(t, int64(5000), a.QuotaAllottedMinutes)
			assert.Zero(t, a.QuotaConsumedMinutes)
		})
	}
}
