package services

import (
	"context"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/eligibility"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// EligibilityService implements eligibility.Gate
type EligibilityService struct {
	accounts account.Repository
	ledger   quota.Ledger
	trials   trial.Service
	logger   *logger.Logger
}

// NewEligibilityService creates a new eligibility gate
func NewEligibilityService(accounts account.Repository, ledger quota.Ledger, trials trial.Service, log *logger.Logger) *EligibilityService {
	return &EligibilityService{
		accounts: accounts,
		ledger:   ledger,
		trials:   trials,
		logger:   log,
	}
}

// CanProceed routes trial-plan calls to the trial machine and everything else
// to the quota ledger. Any failure to read state denies.
func (s *EligibilityService) CanProceed(ctx context.Context, accountID string, estimatedSeconds int64, surface eligibility.Surface) *quota.Decision {
	d := s.decide(ctx, accountID, estimatedSeconds, surface)
	metrics.RecordEligibilityDecision(string(surface), d.Allowed, string(d.Reason))

	if !d.Allowed {
		s.logger.ForAccount(accountID).WithFields(map[string]interface{}{
			"surface":           surface,
			"estimated_seconds": estimatedSeconds,
			"reason":            d.Reason,
		}).Info("Billable action denied")
	}
	return d
}

func (s *EligibilityService) decide(ctx context.Context, accountID string, estimatedSeconds int64, surface eligibility.Surface) *quota.Decision {
	if !surface.Valid() {
		return quota.Deny(quota.ReasonEligibilityUnknown)
	}
	if surface != eligibility.SurfaceCall {
		return s.ledger.CheckWithinQuota(ctx, accountID, estimatedSeconds)
	}

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		s.logger.ForAccount(accountID).WithError(err).Warn("Eligibility check failed closed")
		return quota.Deny(quota.ReasonEligibilityUnknown)
	}
	if a.Plan.IsPaid() {
		return s.ledger.CheckWithinQuota(ctx, accountID, estimatedSeconds)
	}

	ce, err := s.trials.CanMakeCall(ctx, accountID)
	if err != nil {
		s.logger.ForAccount(accountID).WithError(err).Warn("Trial check failed closed")
		return quota.Deny(quota.ReasonEligibilityUnknown)
	}

	d := &quota.Decision{
		Allowed:          ce.CanCall,
		Plan:             a.Plan,
		MinutesNeeded:    quota.MinutesFor(estimatedSeconds),
		MinutesUsed:      a.QuotaConsumedMinutes,
		MinutesQuota:     a.QuotaAllottedMinutes,
		MinutesRemaining: a.RemainingMinutes(),
		Trial:            ce.Status,
	}
	if !ce.CanCall {
		switch ce.Reason {
		case trial.ReasonExpired:
			d.Reason = quota.ReasonTrialExpired
		case trial.ReasonExhausted:
			d.Reason = quota.ReasonTrialExhausted
		default:
			d.Reason = quota.ReasonEligibilityUnknown
		}
		d.Message = quota.MessageFor(d.Reason)
	}
	return d
}

// CompleteCall settles a finished call against the trial for trial plans and
// against the paid quota otherwise
func (s *EligibilityService) CompleteCall(ctx context.Context, accountID, agentID string, durationSeconds int64) (*eligibility.CallCompletion, error) {
	if durationSeconds < 0 || durationSeconds > usage.MaxEventSeconds {
		return nil, errors.ValidationError("Call duration must be between 0 and 2678400 seconds", map[string]int64{"duration_seconds": durationSeconds})
	}

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	completion := &eligibility.CallCompletion{
		AccountID: accountID,
		Plan:      a.Plan,
		Seconds:   durationSeconds,
	}

	if !a.Plan.IsPaid() {
		outcome, err := s.trials.CompleteTrialCall(ctx, accountID, agentID, durationSeconds)
		if err != nil {
			return nil, err
		}
		completion.Trial = outcome
		return completion, nil
	}

	if durationSeconds == 0 {
		return completion, nil
	}

	err = s.ledger.RecordConsumption(ctx, quota.Consumption{
		AccountID: accountID,
		AgentID:   agentID,
		Kind:      usage.KindCall,
		Seconds:   durationSeconds,
	})
	if err != nil {
		return nil, err
	}
	completion.ChargedMinutes = quota.MinutesFor(durationSeconds)
	return completion, nil
}
