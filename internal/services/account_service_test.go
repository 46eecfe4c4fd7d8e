package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

func newAccountService(t *testing.T) (*AccountService, *testutil.MockAccountRepository, *clock.Fixed) {
	t.Helper()
	repo := testutil.NewMockAccountRepository()
	clk := testutil.NewClock()
	return NewAccountService(repo, plan.DefaultCatalog(), DefaultAccountSettings(), clk, testutil.NewLogger()), repo, clk
}

func TestAccountService_Signup(t *testing.T) {
	svc, repo, clk := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Signup(ctx, "  Owner@Example.com ")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "owner@example.com", a.Email)
	assert.Equal(t, plan.TypeTrial, a.Plan)
	assert.Equal(t, int64(60), a.QuotaAllottedMinutes)
	assert.Equal(t, int64(0), a.QuotaConsumedMinutes)

	ts, err := repo.GetTrial(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), ts.CapSeconds)
	assert.Equal(t, clk.Now(), ts.StartedAt)
	assert.Equal(t, clk.Now().Add(30*24*time.Hour), ts.ExpiresAt)

	status := trial.Evaluate(a, ts, clk.Now())
	assert.Equal(t, trial.StateActive, status.State)
}

func TestAccountService_SignupValidation(t *testing.T) {
	svc, _, _ := newAccountService(t)

	for _, email := range []string{"", "not-an-email"} {
		_, err := svc.Signup(context.Background(), email)
		assert.ErrorIs(t, err, errors.ErrValidation, "email=%q", email)
	}
}

func TestAccountService_ActivatePlan(t *testing.T) {
	svc, repo, clk := newAccountService(t)
	ctx := context.Background()
	require.NoError(t, testutil.SeedAccount(repo, "acct", plan.TypeTrial, 60, 42, testutil.NewTrial("acct", 300, 120)))

	clk.Advance(10 * 24 * time.Hour)
	a, err := svc.ActivatePlan(ctx, "acct", plan.TypePro)
	require.NoError(t, err)

	assert.Equal(t, plan.TypePro, a.Plan)
	assert.Equal(t, int64(5000), a.QuotaAllottedMinutes)
	assert.Equal(t, int64(0), a.QuotaConsumedMinutes)
	assert.Equal(t, clk.Now(), a.PeriodStartedAt)
	assert.Equal(t, clk.Now().Add(30*24*time.Hour), a.PeriodEndsAt)

	ts, err := repo.GetTrial(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(120), ts.SecondsUsed, "trial row is kept for audit")
	assert.Equal(t, trial.StateConverted, trial.Evaluate(a, ts, clk.Now()).State)
}

func TestAccountService_ActivatePlanRejects(t *testing.T) {
	svc, repo, _ := newAccountService(t)
	ctx := context.Background()
	require.NoError(t, testutil.SeedAccount(repo, "acct", plan.TypeTrial, 60, 0, nil))

	_, err := svc.ActivatePlan(ctx, "acct", plan.TypeTrial)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.ActivatePlan(ctx, "acct", plan.Type("gold"))
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.ActivatePlan(ctx, "ghost", plan.TypeBasic)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestAccountService_ResetPeriod(t *testing.T) {
	svc, repo, clk := newAccountService(t)
	ctx := context.Background()
	require.NoError(t, testutil.SeedAccount(repo, "acct", plan.TypeBasic, 500, 321, nil))

	clk.Advance(time.Hour)
	a, err := svc.ResetPeriod(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.QuotaConsumedMinutes)
	assert.Equal(t, int64(500), a.QuotaAllottedMinutes)
	assert.Equal(t, clk.Now(), a.PeriodStartedAt)
}

func TestAccountService_ResetDuePeriods(t *testing.T) {
	svc, repo, clk := newAccountService(t)
	ctx := context.Background()
	require.NoError(t, testutil.SeedAccount(repo, "trial", plan.TypeTrial, 60, 30, nil))
	require.NoError(t, testutil.SeedAccount(repo, "due", plan.TypeBasic, 500, 400, nil))
	require.NoError(t, testutil.SeedAccount(repo, "late", plan.TypePro, 5000, 10, nil))

	// "late" missed two whole periods
	clk.Advance(65 * 24 * time.Hour)

	n, err := svc.ResetDuePeriods(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	late, err := repo.GetByID(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, int64(0), late.QuotaConsumedMinutes)
	assert.Equal(t, testutil.Epoch.Add(60*24*time.Hour), late.PeriodStartedAt)
	assert.Equal(t, testutil.Epoch.Add(90*24*time.Hour), late.PeriodEndsAt)

	tr, err := repo.GetByID(ctx, "trial")
	require.NoError(t, err)
	assert.Equal(t, int64(30), tr.QuotaConsumedMinutes, "trial accounts are not renewed")

	n, err = svc.ResetDuePeriods(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAccountService_ResetDuePeriodsSkipsFailures(t *testing.T) {
	svc, repo, clk := newAccountService(t)
	require.NoError(t, testutil.SeedAccount(repo, "due", plan.TypeBasic, 500, 400, nil))
	repo.ResetError = testutil.ErrStorage
	clk.Advance(31 * 24 * time.Hour)

	n, err := svc.ResetDuePeriods(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
