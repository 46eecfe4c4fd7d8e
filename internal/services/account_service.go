package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// resetBatchSize caps how many accounts one sweep resets
const resetBatchSize = 500

// AccountSettings holds the product constants applied at signup and renewal
type AccountSettings struct {
	TrialCapSeconds int64
	TrialWindow     time.Duration
	BillingPeriod   time.Duration
}

// DefaultAccountSettings returns the standard trial and period lengths
func DefaultAccountSettings() AccountSettings {
	return AccountSettings{
		TrialCapSeconds: account.DefaultTrialCapSeconds,
		TrialWindow:     account.DefaultTrialWindow,
		BillingPeriod:   account.DefaultBillingPeriod,
	}
}

// AccountService implements account.Service
type AccountService struct {
	repo      account.Repository
	catalog   *plan.Catalog
	settings  AccountSettings
	clock     clock.Clock
	validator *validator.Validator
	logger    *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(repo account.Repository, catalog *plan.Catalog, settings AccountSettings, clk clock.Clock, log *logger.Logger) *AccountService {
	if clk == nil {
		clk = clock.System{}
	}
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	return &AccountService{
		repo:      repo,
		catalog:   catalog,
		settings:  settings,
		clock:     clk,
		validator: validator.New(),
		logger:    log,
	}
}

// Signup creates a trial account and its trial state together
func (s *AccountService) Signup(ctx context.Context, email string) (*account.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := s.validator.ValidateVar(email, "required,email,max=254"); err != nil {
		return nil, errors.ValidationError("A valid email is required", map[string]string{"email": email})
	}

	now := s.clock.Now()
	a := &account.Account{
		ID:                   uuid.NewString(),
		Email:                email,
		Plan:                 plan.TypeTrial,
		QuotaAllottedMinutes: s.catalog.Minutes(plan.TypeTrial),
		PeriodStartedAt:      now,
		PeriodEndsAt:         now.Add(s.settings.BillingPeriod),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	trialState := &account.TrialState{
		AccountID:  a.ID,
		StartedAt:  now,
		ExpiresAt:  now.Add(s.settings.TrialWindow),
		CapSeconds: s.settings.TrialCapSeconds,
	}

	if err := s.repo.Create(ctx, a, trialState); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create account")
		return nil, err
	}

	s.logger.ForAccount(a.ID).WithFields(map[string]interface{}{
		"email":             a.Email,
		"trial_cap_seconds": trialState.CapSeconds,
		"trial_expires_at":  trialState.ExpiresAt,
	}).Info("Account created")

	return a, nil
}

// Get retrieves an account
func (s *AccountService) Get(ctx context.Context, id string) (*account.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves accounts with pagination
func (s *AccountService) List(ctx context.Context, limit, offset int) ([]*account.Account, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// ActivatePlan applies a confirmed payment: the plan's allotment replaces the
// old one and a fresh period starts with nothing consumed
func (s *AccountService) ActivatePlan(ctx context.Context, id string, p plan.Type) (*account.Account, error) {
	if !p.IsPaid() {
		return nil, errors.ValidationError("Only paid plans can be activated", map[string]string{"plan": string(p)})
	}
	def, ok := s.catalog.Get(p)
	if !ok {
		return nil, errors.ValidationError("Unknown plan", map[string]string{"plan": string(p)})
	}

	now := s.clock.Now()
	if err := s.repo.ActivatePlan(ctx, id, p, def.Minutes, now, now.Add(s.settings.BillingPeriod)); err != nil {
		s.logger.ForAccount(id).ErrorWithErr(err, "Failed to activate plan")
		return nil, err
	}
	metrics.RecordPlanActivation(string(p))

	s.logger.ForAccount(id).WithFields(map[string]interface{}{
		"plan":    p,
		"minutes": def.Minutes,
	}).Info("Plan activated")

	return s.repo.GetByID(ctx, id)
}

// ResetPeriod zeroes consumption and starts a new period now
func (s *AccountService) ResetPeriod(ctx context.Context, id string) (*account.Account, error) {
	now := s.clock.Now()
	if err := s.repo.ResetPeriod(ctx, id, now, now.Add(s.settings.BillingPeriod)); err != nil {
		return nil, err
	}
	metrics.RecordPeriodReset("manual", 1)
	s.logger.ForAccount(id).Info("Billing period reset")

	return s.repo.GetByID(ctx, id)
}

// ResetDuePeriods rolls every ended paid period forward. The new window stays
// aligned to the old boundary rather than to the sweep time.
func (s *AccountService) ResetDuePeriods(ctx context.Context) (int, error) {
	now := s.clock.Now()
	due, err := s.repo.ListDueForReset(ctx, now, resetBatchSize)
	if err != nil {
		return 0, err
	}

	reset := 0
	for _, a := range due {
		start, end := nextPeriod(a.PeriodEndsAt, s.settings.BillingPeriod, now)
		if err := s.repo.ResetPeriod(ctx, a.ID, start, end); err != nil {
			s.logger.ForAccount(a.ID).ErrorWithErr(err, "Failed to reset billing period")
			continue
		}
		reset++
	}

	if reset > 0 {
		metrics.RecordPeriodReset("scheduled", reset)
		s.logger.With("accounts", reset).Info("Billing periods reset")
	}
	return reset, nil
}

// nextPeriod returns the first period starting at or after boundary that
// contains now
func nextPeriod(boundary time.Time, period time.Duration, now time.Time) (time.Time, time.Time) {
	if period <= 0 {
		return now, now
	}
	start := boundary
	end := start.Add(period)
	for !end.After(now) {
		start = end
		end = start.Add(period)
	}
	return start, end
}
