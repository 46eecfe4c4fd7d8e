package client

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/api/dto"
	"github.com/odiabackend099/callwaiting/internal/api/handlers"
	"github.com/odiabackend099/callwaiting/internal/api/router"
	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/repository/memory"
	"github.com/odiabackend099/callwaiting/internal/services"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{Server: config.ServerConfig{RateLimitRPS: 1000, RateLimitBurst: 1000}}
	log := testutil.NewLogger()
	clk := testutil.NewClock()
	val := dto.NewValidator()
	catalog := plan.DefaultCatalog()

	accounts := memory.NewAccountRepository()
	recorder := services.NewUsageRecorder(memory.NewUsageEventRepository(), clk, log)
	ledger := services.NewQuotaLedger(accounts, recorder, log)
	trials := services.NewTrialService(accounts, recorder, clk, log)
	gate := services.NewEligibilityService(accounts, ledger, trials, log)
	accountSvc := services.NewAccountService(accounts, catalog, services.DefaultAccountSettings(), clk, log)

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	h := &router.Handlers{
		Health:      handlers.NewHealthHandler(nil, log),
		Account:     handlers.NewAccountHandler(accountSvc, log, val),
		Usage:       handlers.NewUsageHandler(ledger, recorder, clk, log, val),
		Trial:       handlers.NewTrialHandler(trials, log, val),
		Eligibility: handlers.NewEligibilityHandler(gate, log, val),
		Billing:     handlers.NewBillingHandler(catalog, accountSvc, log, val),
	}
	srv := httptest.NewServer(router.New(cfg, log, h, done))
	t.Cleanup(srv.Close)

	return NewClient(Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t)

	health, err := c.Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ready", health.Status)
	assert.Equal(t, "memory", health.Database)
	assert.NoError(t, c.Ping(t.Context()))
}

func TestClient_AccountLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := t.Context()

	acct, err := c.Accounts().Create(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "trial", acct.Plan)

	got, err := c.Accounts().Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.Email, got.Email)

	page, err := c.Accounts().List(ctx, &ListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	require.Len(t, page.Data, 1)

	te, err := c.Trial().Status(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, te.CanCall)
	assert.Equal(t, int64(300), te.Status.SecondsRemaining)

	status, err := c.Trial().RecordUsage(ctx, acct.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, int64(120), status.SecondsUsed)

	// 120 + 200 would pass the cap
	_, err = c.Trial().RecordUsage(ctx, acct.ID, 200)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "TRIAL_EXHAUSTED", apiErr.Code)
	assert.True(t, apiErr.IsDenied())

	plans, err := c.Billing().Plans(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, plans)

	paid, err := c.Billing().Activate(ctx, acct.ID, "basic", "pay_123")
	require.NoError(t, err)
	assert.Equal(t, "basic", paid.Plan)
	assert.Equal(t, int64(500), paid.QuotaRemainingMinutes)

	require.NoError(t, c.Usage().Record(ctx, acct.ID, RecordUsageRequest{Kind: "tts", Seconds: 61}))

	sum, err := c.Usage().Summary(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.MinutesUsed)
	assert.Equal(t, int64(498), sum.Remaining)

	events, err := c.Usage().Events(ctx, acct.ID, &EventListOptions{Kind: "tts"})
	require.NoError(t, err)
	require.Len(t, events.Data, 1)
	assert.Equal(t, int64(61), events.Data[0].SecondsConsumed)

	completion, err := c.Accounts().CompleteCall(ctx, acct.ID, "agent-1", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completion.ChargedMinutes)

	reset, err := c.Accounts().ResetPeriod(ctx, acct.ID)
	require.NoError(t, err)
	assert.Zero(t, reset.QuotaConsumedMinutes)
}

func TestClient_CheckEligibilityReturnsDenialAsDecision(t *testing.T) {
	c := newTestClient(t)
	ctx := t.Context()

	acct, err := c.Accounts().Create(ctx, "owner@example.com")
	require.NoError(t, err)

	d, err := c.CheckEligibility(ctx, acct.ID, "call", 60)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = c.Accounts().CompleteCall(ctx, acct.ID, "", 400)
	require.NoError(t, err)

	d, err = c.CheckEligibility(ctx, acct.ID, "call", 60)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "trial_exhausted", d.Reason)

	// unknown accounts are a 503, not a decision
	_, err = c.CheckEligibility(ctx, "ghost", "call", 60)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsServerError())
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Accounts().Get(t.Context(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestClient_Export(t *testing.T) {
	c := newTestClient(t)
	ctx := t.Context()

	acct, err := c.Accounts().Create(ctx, "owner@example.com")
	require.NoError(t, err)
	_, err = c.Billing().Activate(ctx, acct.ID, "basic", "")
	require.NoError(t, err)
	require.NoError(t, c.Usage().Record(ctx, acct.ID, RecordUsageRequest{Kind: "inference", Seconds: 10}))

	var buf bytes.Buffer
	n, err := c.Usage().Export(ctx, acct.ID, nil, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	// xlsx is a zip archive
	assert.Equal(t, []byte("PK"), buf.Bytes()[:2])
}

func TestDecodeError_NonJSONBody(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("upstream down\n"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.True(t, apiErr.IsServerError())
}
