// Package memory holds process-local stores for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
)

// AccountRepository implements account.Repository. Each account has its own
// lock, so writers to different accounts never contend.
type AccountRepository struct {
	mu      sync.RWMutex // guards records, not their contents
	records map[string]*accountRecord
	clock   clock.Clock
}

type accountRecord struct {
	mu      sync.Mutex
	account account.Account
	trial   *account.TrialState
}

// NewAccountRepository creates an empty store
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{records: make(map[string]*accountRecord), clock: clock.System{}}
}

// WithClock sets the clock that stamps UpdatedAt
func (r *AccountRepository) WithClock(clk clock.Clock) *AccountRepository {
	r.clock = clk
	return r
}

func (r *AccountRepository) record(id string) (*accountRecord, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("Account")
	}
	return rec, nil
}

// Create stores an account together with its trial state
func (r *AccountRepository) Create(_ context.Context, a *account.Account, trial *account.TrialState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[a.ID]; exists {
		return errors.Conflict("Account already exists")
	}

	rec := &accountRecord{account: *a}
	if trial != nil {
		t := *trial
		rec.trial = &t
	}
	r.records[a.ID] = rec
	return nil
}

// GetByID returns a copy of the account
func (r *AccountRepository) GetByID(_ context.Context, id string) (*account.Account, error) {
	rec, err := r.record(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	a := rec.account
	return &a, nil
}

// GetTrial returns a copy of the trial state
func (r *AccountRepository) GetTrial(_ context.Context, accountID string) (*account.TrialState, error) {
	rec, err := r.record(accountID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.trial == nil {
		return nil, errors.NotFound("Trial")
	}
	t := *rec.trial
	return &t, nil
}

// List returns accounts newest first
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*account.Account, int64, error) {
	all := r.snapshot()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*account.Account{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

// IncrementConsumed adds minutes to the consumed counter
func (r *AccountRepository) IncrementConsumed(_ context.Context, id string, minutes int64) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.account.QuotaConsumedMinutes += minutes
	rec.account.UpdatedAt = r.clock.Now()
	return nil
}

// IncrementTrialSeconds adds seconds unless the cap would be passed
func (r *AccountRepository) IncrementTrialSeconds(_ context.Context, accountID string, seconds int64) (bool, error) {
	rec, err := r.record(accountID)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.trial == nil || seconds > rec.trial.CapSeconds-rec.trial.SecondsUsed {
		return false, nil
	}
	rec.trial.SecondsUsed += seconds
	return true, nil
}

// ActivatePlan switches plan and opens a fresh period
func (r *AccountRepository) ActivatePlan(_ context.Context, id string, p plan.Type, allottedMinutes int64, periodStart, periodEnd time.Time) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.account.Plan = p
	rec.account.QuotaAllottedMinutes = allottedMinutes
	rec.account.QuotaConsumedMinutes = 0
	rec.account.PeriodStartedAt = periodStart
	rec.account.PeriodEndsAt = periodEnd
	rec.account.UpdatedAt = r.clock.Now()
	return nil
}

// ResetPeriod zeroes consumption and moves the period window
func (r *AccountRepository) ResetPeriod(_ context.Context, id string, periodStart, periodEnd time.Time) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.account.QuotaConsumedMinutes = 0
	rec.account.PeriodStartedAt = periodStart
	rec.account.PeriodEndsAt = periodEnd
	rec.account.UpdatedAt = r.clock.Now()
	return nil
}

// ListDueForReset returns paid accounts whose period has ended
func (r *AccountRepository) ListDueForReset(_ context.Context, now time.Time, limit int) ([]*account.Account, error) {
	var due []*account.Account
	for _, a := range r.snapshot() {
		if a.Plan.IsPaid() && !a.PeriodEndsAt.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].PeriodEndsAt.Before(due[j].PeriodEndsAt) })

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *AccountRepository) snapshot() []*account.Account {
	r.mu.RLock()
	recs := make([]*accountRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]*account.Account, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		a := rec.account
		rec.mu.Unlock()
		out = append(out, &a)
	}
	return out
}
