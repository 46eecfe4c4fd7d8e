package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

// meteringFixture wires the metering services over failure-injecting repositories
type meteringFixture struct {
	accounts *testutil.MockAccountRepository
	events   *testutil.MockUsageRepository
	clock    *clock.Fixed
	recorder *UsageRecorder
	ledger   *QuotaLedger
	trials   *TrialService
	gate     *EligibilityService
}

func newMeteringFixture(t *testing.T) *meteringFixture {
	t.Helper()

	f := &meteringFixture{
		accounts: testutil.NewMockAccountRepository(),
		events:   testutil.NewMockUsageRepository(),
		clock:    testutil.NewClock(),
	}
	f.accounts.WithClock(f.clock)
	log := testutil.NewLogger()
	f.recorder = NewUsageRecorder(f.events, f.clock, log)
	f.ledger = NewQuotaLedger(f.accounts, f.recorder, log)
	f.trials = NewTrialService(f.accounts, f.recorder, f.clock, log)
	f.gate = NewEligibilityService(f.accounts, f.ledger, f.trials, log)
	return f
}

func (f *meteringFixture) paidAccount(t *testing.T, id string, p plan.Type, allotted, consumed int64) {
	t.Helper()
	require.NoError(t, testutil.SeedAccount(f.accounts, id, p, allotted, consumed, testutil.NewTrial(id, 300, 300)))
}

func (f *meteringFixture) trialAccount(t *testing.T, id string, capSeconds, used int64) {
	t.Helper()
	require.NoError(t, testutil.SeedAccount(f.accounts, id, plan.TypeTrial, 60, 0, testutil.NewTrial(id, capSeconds, used)))
}

func (f *meteringFixture) consumed(t *testing.T, id string) int64 {
	t.Helper()
	a, err := f.accounts.AccountRepository.GetByID(t.Context(), id)
	require.NoError(t, err)
	return a.QuotaConsumedMinutes
}

func (f *meteringFixture) trialUsed(t *testing.T, id string) int64 {
	t.Helper()
	ts, err := f.accounts.AccountRepository.GetTrial(t.Context(), id)
	require.NoError(t, err)
	return ts.SecondsUsed
}

var _ account.Repository = (*testutil.MockAccountRepository)(nil)
