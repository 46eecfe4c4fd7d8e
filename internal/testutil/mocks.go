package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/repository/memory"
)

// ErrStorage is the failure injected by the mocks below
var ErrStorage = errors.DatabaseError("storage unavailable", nil)

// MockAccountRepository is an in-memory account.Repository with injectable failures
type MockAccountRepository struct {
	*memory.AccountRepository

	mu                  sync.Mutex
	GetError            error
	GetTrialError       error
	IncrementError      error
	TrialIncrementError error
	ActivateError       error
	ResetError          error
	IncrementCalls      int
	TrialIncrementCalls int
}

// NewMockAccountRepository creates an empty mock
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{AccountRepository: memory.NewAccountRepository()}
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.AccountRepository.GetByID(ctx, id)
}

func (m *MockAccountRepository) GetTrial(ctx context.Context, accountID string) (*account.TrialState, error) {
	if m.GetTrialError != nil {
		return nil, m.GetTrialError
	}
	return m.AccountRepository.GetTrial(ctx, accountID)
}

func (m *MockAccountRepository) IncrementConsumed(ctx context.Context, id string, minutes int64) error {
	m.mu.Lock()
	m.IncrementCalls++
	m.mu.Unlock()
	if m.IncrementError != nil {
		return m.IncrementError
	}
	return m.AccountRepository.IncrementConsumed(ctx, id, minutes)
}

func (m *MockAccountRepository) IncrementTrialSeconds(ctx context.Context, accountID string, seconds int64) (bool, error) {
	m.mu.Lock()
	m.TrialIncrementCalls++
	m.mu.Unlock()
	if m.TrialIncrementError != nil {
		return false, m.TrialIncrementError
	}
	return m.AccountRepository.IncrementTrialSeconds(ctx, accountID, seconds)
}

func (m *MockAccountRepository) ActivatePlan(ctx context.Context, id string, p plan.Type, allotted int64, start, end time.Time) error {
	if m.ActivateError != nil {
		return m.ActivateError
	}
	return m.AccountRepository.ActivatePlan(ctx, id, p, allotted, start, end)
}

func (m *MockAccountRepository) ResetPeriod(ctx context.Context, id string, start, end time.Time) error {
	if m.ResetError != nil {
		return m.ResetError
	}
	return m.AccountRepository.ResetPeriod(ctx, id, start, end)
}

// MockUsageRepository is an in-memory usage.Repository with injectable failures
type MockUsageRepository struct {
	*memory.UsageEventRepository

	AppendError error
	ListError   error
}

// NewMockUsageRepository creates an empty mock
func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{UsageEventRepository: memory.NewUsageEventRepository()}
}

func (m *MockUsageRepository) Append(ctx context.Context, e *usage.Event) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	return m.UsageEventRepository.Append(ctx, e)
}

func (m *MockUsageRepository) ListByAccount(ctx context.Context, accountID string, opts usage.ListOptions) ([]*usage.Event, int64, error) {
	if m.ListError != nil {
		return nil, 0, m.ListError
	}
	return m.UsageEventRepository.ListByAccount(ctx, accountID, opts)
}

// Events returns every stored event for an account, newest first
func (m *MockUsageRepository) Events(accountID string) []*usage.Event {
	events, _, _ := m.UsageEventRepository.ListByAccount(context.Background(), accountID, usage.ListOptions{})
	return events
}

// SeedAccount stores an account with the given plan and trial usage
func SeedAccount(repo account.Repository, id string, p plan.Type, allotted, consumed int64, trial *account.TrialState) error {
	a := &account.Account{
		ID:                   id,
		Email:                id + "@example.com",
		Plan:                 p,
		QuotaAllottedMinutes: allotted,
		QuotaConsumedMinutes: consumed,
		PeriodStartedAt:      Epoch,
		PeriodEndsAt:         Epoch.Add(account.DefaultBillingPeriod),
		CreatedAt:            Epoch,
		UpdatedAt:            Epoch,
	}
	return repo.Create(context.Background(), a, trial)
}

// NewTrial builds a trial state starting at Epoch
func NewTrial(accountID string, capSeconds, used int64) *account.TrialState {
	return &account.TrialState{
		AccountID:   accountID,
		StartedAt:   Epoch,
		ExpiresAt:   Epoch.Add(account.DefaultTrialWindow),
		CapSeconds:  capSeconds,
		SecondsUsed: used,
	}
}
