package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/services"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

// apiFixture wires handlers over the metering services and in-memory stores
type apiFixture struct {
	accounts    *testutil.MockAccountRepository
	events      *testutil.MockUsageRepository
	clock       *clock.Fixed
	accountSvc  *services.AccountService
	account     *AccountHandler
	usage       *UsageHandler
	trial       *TrialHandler
	eligibility *EligibilityHandler
	billing     *BillingHandler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		accounts: testutil.NewMockAccountRepository(),
		events:   testutil.NewMockUsageRepository(),
		clock:    testutil.NewClock(),
	}
	log := testutil.NewLogger()
	val := dto.NewValidator()
	catalog := plan.DefaultCatalog()

	recorder := services.NewUsageRecorder(f.events, f.clock, log)
	ledger := services.NewQuotaLedger(f.accounts, recorder, log)
	trials := services.NewTrialService(f.accounts, recorder, f.clock, log)
	gate := services.NewEligibilityService(f.accounts, ledger, trials, log)
	f.accountSvc = services.NewAccountService(f.accounts, catalog, services.DefaultAccountSettings(), f.clock, log)

	f.account = NewAccountHandler(f.accountSvc, log, val)
	f.usage = NewUsageHandler(ledger, recorder, f.clock, log, val)
	f.trial = NewTrialHandler(trials, log, val)
	f.eligibility = NewEligibilityHandler(gate, log, val)
	f.billing = NewBillingHandler(catalog, f.accountSvc, log, val)
	return f
}

func (f *apiFixture) paidAccount(t *testing.T, id string, p plan.Type, allotted, consumed int64) {
	t.Helper()
	require.NoError(t, testutil.SeedAccount(f.accounts, id, p, allotted, consumed, testutil.NewTrial(id, 300, 300)))
}

func (f *apiFixture) trialAccount(t *testing.T, id string, capSeconds, used int64) {
	t.Helper()
	require.NoError(t, testutil.SeedAccount(f.accounts, id, plan.TypeTrial, 60, 0, testutil.NewTrial(id, capSeconds, used)))
}

// call invokes h with an optional JSON body and {id} route parameter
func call(t *testing.T, h http.HandlerFunc, method, target, id string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decode(t, rr)
	require.True(t, env.Success, rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
