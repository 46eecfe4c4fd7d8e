package postgres

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

func newTrialAccount(id string, capSeconds int64) (*account.Account, *account.TrialState) {
	start := testutil.Epoch
	return &account.Account{
			ID:                   id,
			Email:                id + "@example.com",
			Plan:                 plan.TypeTrial,
			QuotaAllottedMinutes: 60,
			PeriodStartedAt:      start,
			PeriodEndsAt:         start.Add(account.DefaultBillingPeriod),
			CreatedAt:            start,
			UpdatedAt:            start,
		}, &account.TrialState{
			AccountID:  id,
			StartedAt:  start,
			ExpiresAt:  start.Add(account.DefaultTrialWindow),
			CapSeconds: capSeconds,
		}
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 300)
	if err := repo.Create(ctx, a, trial); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Plan != plan.TypeTrial || got.QuotaAllottedMinutes != 60 {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.PeriodStartedAt.Equal(testutil.Epoch) {
		t.Errorf("PeriodStartedAt = %v, want %v", got.PeriodStartedAt, testutil.Epoch)
	}

	gotTrial, err := repo.GetTrial(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetTrial() error = %v", err)
	}
	if gotTrial.CapSeconds != 300 || gotTrial.SecondsUsed != 0 {
		t.Errorf("GetTrial() = %+v", gotTrial)
	}
	if !gotTrial.ExpiresAt.Equal(testutil.Epoch.Add(account.DefaultTrialWindow)) {
		t.Errorf("ExpiresAt = %v", gotTrial.ExpiresAt)
	}
}

func TestAccountRepository_CreateIsAtomic(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 300)
	trial.SecondsUsed = 500 // violates the cap check

	if err := repo.Create(ctx, a, trial); err == nil {
		t.Fatal("Create() expected error for trial over cap")
	}
	if _, err := repo.GetByID(ctx, "acct-1"); !errorsIsNotFound(err) {
		t.Errorf("account row should have been rolled back, got err = %v", err)
	}
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errorsIsNotFound(err) {
		t.Errorf("GetByID() error = %v, want NOT_FOUND", err)
	}
}

func TestAccountRepository_IncrementConsumed(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 300)
	if err := repo.Create(ctx, a, trial); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		id      string
		minutes int64
		want    int64
		wantErr bool
	}{
		{"first charge", "acct-1", 2, 2, false},
		{"second charge", "acct-1", 3, 5, false},
		{"unknown account", "missing", 1, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.IncrementConsumed(ctx, tt.id, tt.minutes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IncrementConsumed() error = %v, wantErr %v", err, tt.wantErr)
			}
			got, _ := repo.GetByID(ctx, "acct-1")
			if got.QuotaConsumedMinutes != tt.want {
				t.Errorf("consumed = %d, want %d", got.QuotaConsumedMinutes, tt.want)
			}
		})
	}
}

func TestAccountRepository_ConcurrentIncrementsAreNotLost(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 300)
	if err := repo.Create(ctx, a, trial); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const k = 25
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementConsumed(ctx, "acct-1", 1); err != nil {
				t.Errorf("IncrementConsumed() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := repo.GetByID(ctx, "acct-1")
	if got.QuotaConsumedMinutes != k {
		t.Errorf("consumed = %d, want %d", got.QuotaConsumedMinutes, k)
	}
}

func TestAccountRepository_IncrementTrialSeconds(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 3600)
	trial.SecondsUsed = 3550
	if err := repo.Create(ctx, a, trial); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		seconds int64
		applied bool
		used    int64
	}{
		{"overshoot rejected", 60, false, 3550},
		{"largest value rejected", math.MaxInt64, false, 3550},
		{"fits exactly", 50, true, 3600},
		{"nothing left", 1, false, 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := repo.IncrementTrialSeconds(ctx, "acct-1", tt.seconds)
			if err != nil {
				t.Fatalf("IncrementTrialSeconds() error = %v", err)
			}
			if ok != tt.applied {
				t.Errorf("applied = %v, want %v", ok, tt.applied)
			}
			got, _ := repo.GetTrial(ctx, "acct-1")
			if got.SecondsUsed != tt.used {
				t.Errorf("seconds used = %d, want %d", got.SecondsUsed, tt.used)
			}
		})
	}
}

func TestAccountRepository_ActivateResetAndDue(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	for _, id := range []string{"trial", "paid"} {
		a, trial := newTrialAccount(id, 300)
		if err := repo.Create(ctx, a, trial); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	start := testutil.Epoch
	end := start.Add(time.Hour)
	if err := repo.ActivatePlan(ctx, "paid", plan.TypePro, 5000, start, end); err != nil {
		t.Fatalf("ActivatePlan() error = %v", err)
	}
	if err := repo.IncrementConsumed(ctx, "paid", 12); err != nil {
		t.Fatalf("IncrementConsumed() error = %v", err)
	}

	due, err := repo.ListDueForReset(ctx, end, 10)
	if err != nil {
		t.Fatalf("ListDueForReset() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != "paid" || due[0].QuotaConsumedMinutes != 12 {
		t.Fatalf("ListDueForReset() = %+v", due)
	}

	if err := repo.ResetPeriod(ctx, "paid", end, end.Add(time.Hour)); err != nil {
		t.Fatalf("ResetPeriod() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, "paid")
	if got.QuotaConsumedMinutes != 0 || got.Plan != plan.TypePro || got.QuotaAllottedMinutes != 5000 {
		t.Errorf("after reset = %+v", got)
	}

	due, _ = repo.ListDueForReset(ctx, end, 10)
	if len(due) != 0 {
		t.Errorf("ListDueForReset() after reset = %d accounts, want 0", len(due))
	}

	if err := repo.ResetPeriod(ctx, "missing", end, end); !errorsIsNotFound(err) {
		t.Errorf("ResetPeriod(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestAccountRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		a, trial := newTrialAccount(id, 300)
		if err := repo.Create(ctx, a, trial); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	page, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("List() = %d items, total %d", len(page), total)
	}
}

func errorsIsNotFound(err error) bool {
	return errors.CodeOf(err) == errors.ErrCodeNotFound
}

func TestAccountRepository_UpdatedAtFollowsClock(t *testing.T) {
	db := testutil.NewTestDB(t)
	clk := testutil.NewClock()
	repo := NewAccountRepository(db).WithClock(clk)
	ctx := context.Background()

	a, trial := newTrialAccount("acct-1", 300)
	if err := repo.Create(ctx, a, trial); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"increment", func() error { return repo.IncrementConsumed(ctx, "acct-1", 3) }},
		{"activate", func() error {
			return repo.ActivatePlan(ctx, "acct-1", plan.TypeBasic, 500, clk.Now(), clk.Now().Add(account.DefaultBillingPeriod))
		}},
		{"reset", func() error {
			return repo.ResetPeriod(ctx, "acct-1", clk.Now(), clk.Now().Add(account.DefaultBillingPeriod))
		}},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			clk.Advance(7 * 24 * time.Hour)
			if err := step.run(); err != nil {
				t.Fatalf("%s error = %v", step.name, err)
			}
			got, err := repo.GetByID(ctx, "acct-1")
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if !got.UpdatedAt.Equal(clk.Now()) {
				t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clk.Now())
			}
		})
	}
}
