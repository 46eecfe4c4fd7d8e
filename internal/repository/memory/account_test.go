package memory

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
)

func seed(t *testing.T, repo *AccountRepository, id string, capSeconds int64) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := repo.Create(context.Background(),
		&account.Account{ID: id, Plan: plan.TypeTrial, QuotaAllottedMinutes: 60, CreatedAt: now, PeriodEndsAt: now.Add(time.Hour)},
		&account.TrialState{AccountID: id, StartedAt: now, ExpiresAt: now.Add(time.Hour), CapSeconds: capSeconds},
	)
	require.NoError(t, err)
}

func TestAccountRepository_CreateDuplicate(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "acct-1", 300)

	err := repo.Create(context.Background(), &account.Account{ID: "acct-1"}, nil)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
}

func TestAccountRepository_GetReturnsCopy(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "acct-1", 300)
	ctx := context.Background()

	a, err := repo.GetByID(ctx, "acct-1")
	require.NoError(t, err)
	a.QuotaConsumedMinutes = 999

	again, err := repo.GetByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.QuotaConsumedMinutes)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestAccountRepository_ConcurrentIncrements(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "acct-1", 300)
	seed(t, repo, "acct-2", 300)
	ctx := context.Background()

	const workers = 64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementConsumed(ctx, "acct-1", 1))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementConsumed(ctx, "acct-2", 2))
		}()
	}
	wg.Wait()

	a1, _ := repo.GetByID(ctx, "acct-1")
	a2, _ := repo.GetByID(ctx, "acct-2")
	assert.Equal(t, int64(workers), a1.QuotaConsumedMinutes)
	assert.Equal(t, int64(2*workers), a2.QuotaConsumedMinutes)
}

func TestAccountRepository_TrialCapUnderContention(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "acct-1", 300)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementTrialSeconds(ctx, "acct-1", 7)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	trial, err := repo.GetTrial(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 42, applied)
	assert.Equal(t, int64(294), trial.SecondsUsed)
}

func TestAccountRepository_ResetAndDue(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "trial", 300)
	seed(t, repo, "paid", 300)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ActivatePlan(ctx, "paid", plan.TypeBasic, 500, start, start.Add(time.Hour)))
	require.NoError(t, repo.IncrementConsumed(ctx, "paid", 40))

	due, err := repo.ListDueForReset(ctx, start.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "paid", due[0].ID)

	require.NoError(t, repo.ResetPeriod(ctx, "paid", start.Add(time.Hour), start.Add(2*time.Hour+time.Minute)))
	a, _ := repo.GetByID(ctx, "paid")
	assert.Equal(t, int64(0), a.QuotaConsumedMinutes)
	assert.Equal(t, int64(500), a.QuotaAllottedMinutes)

	due, err = repo.ListDueForReset(ctx, start.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestAccountRepository_TrialIncrementDoesNotWrap(t *testing.T) {
	repo := NewAccountRepository()
	seed(t, repo, "acct-1", 300)
	ctx := context.Background()

	ok, err := repo.IncrementTrialSeconds(ctx, "acct-1", 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IncrementTrialSeconds(ctx, "acct-1", math.MaxInt64)
	require.NoError(t, err)
	assert.False(t, ok)

	trial, err := repo.GetTrial(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), trial.SecondsUsed)
}

func TestAccountRepository_UpdatedAtFollowsClock(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	repo := NewAccountRepository().WithClock(clk)
	seed(t, repo, "acct-1", 300)
	ctx := context.Background()

	clk.Advance(time.Hour)
	require.NoError(t, repo.IncrementConsumed(ctx, "acct-1", 2))
	a, _ := repo.GetByID(ctx, "acct-1")
	assert.Equal(t, clk.Now(), a.UpdatedAt)

	clk.Advance(time.Hour)
	require.NoError(t, repo.ActivatePlan(ctx, "acct-1", plan.TypeBasic, 500, clk.Now(), clk.Now().Add(time.Hour)))
	a, _ = repo.GetByID(ctx, "acct-1")
	assert.Equal(t, clk.Now(), a.UpdatedAt)

	clk.Advance(time.Hour)
	require.NoError(t, repo.ResetPeriod(ctx, "acct-1", clk.Now(), clk.Now().Add(time.Hour)))
	a, _ = repo.GetByID(ctx, "acct-1")
	assert.Equal(t, clk.Now(), a.UpdatedAt)
}
