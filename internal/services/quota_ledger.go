package services

import (
	"context"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// QuotaLedger implements quota.Ledger
type QuotaLedger struct {
	accounts account.Repository
	recorder usage.Recorder
	logger   *logger.Logger
}

// NewQuotaLedger creates a new quota ledger
func NewQuotaLedger(accounts account.Repository, recorder usage.Recorder, log *logger.Logger) *QuotaLedger {
	return &QuotaLedger{
		accounts: accounts,
		recorder: recorder,
		logger:   log,
	}
}

// CheckWithinQuota compares the rounded-up minutes needed with the headroom left.
// Nothing is reserved, so two concurrent checks can both pass.
func (l *QuotaLedger) CheckWithinQuota(ctx context.Context, accountID string, secondsNeeded int64) *quota.Decision {
	a, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		l.logger.ForAccount(accountID).WithError(err).Warn("Quota check failed closed")
		return quota.Deny(quota.ReasonEligibilityUnknown)
	}
	return decideQuota(a, secondsNeeded)
}

func decideQuota(a *account.Account, secondsNeeded int64) *quota.Decision {
	needed := quota.MinutesFor(secondsNeeded)
	d := &quota.Decision{
		Allowed:          needed <= a.QuotaAllottedMinutes-a.QuotaConsumedMinutes,
		Plan:             a.Plan,
		MinutesNeeded:    needed,
		MinutesUsed:      a.QuotaConsumedMinutes,
		MinutesQuota:     a.QuotaAllottedMinutes,
		MinutesRemaining: a.RemainingMinutes(),
	}
	if !d.Allowed {
		d.Reason = quota.ReasonQuotaExceeded
		d.Message = quota.MessageQuotaExceeded
	}
	return d
}

// RecordConsumption appends the usage event and then charges its minutes.
// Storage failures are logged and counted but never returned; a failed event
// append skips the counter so every charge stays traceable to an event.
func (l *QuotaLedger) RecordConsumption(ctx context.Context, c quota.Consumption) error {
	e := &usage.Event{
		AccountID:       c.AccountID,
		Kind:            c.Kind,
		SecondsConsumed: c.Seconds,
		CostCents:       c.CostCents,
		Metadata:        c.Metadata,
	}
	if c.AgentID != "" {
		agentID := c.AgentID
		e.AgentID = &agentID
	}
	if err := l.recorder.Validate(e); err != nil {
		return err
	}

	log := l.logger.ForAccount(c.AccountID).WithFields(map[string]interface{}{
		"kind":    c.Kind,
		"seconds": c.Seconds,
	})

	recorded, err := l.recorder.Record(ctx, e)
	if err != nil {
		metrics.RecordLedgerWriteFailure("event")
		log.ErrorWithErr(err, "Failed to record usage event")
		return nil
	}

	minutes := quota.MinutesFor(c.Seconds)
	if err := l.accounts.IncrementConsumed(ctx, c.AccountID, minutes); err != nil {
		metrics.RecordLedgerWriteFailure("counter")
		log.With("event_id", recorded.ID).ErrorWithErr(err, "Failed to charge usage minutes")
		return nil
	}

	metrics.RecordMinutes(string(c.Kind), minutes)
	log.With("minutes", minutes).Debug("Usage charged")
	return nil
}

// GetUsageSummary reports usage for the current period
func (l *QuotaLedger) GetUsageSummary(ctx context.Context, accountID string) (*quota.Summary, error) {
	a, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &quota.Summary{
		AccountID:    a.ID,
		MinutesUsed:  a.QuotaConsumedMinutes,
		MinutesQuota: a.QuotaAllottedMinutes,
		Remaining:    a.RemainingMinutes(),
		Plan:         a.Plan,
	}, nil
}
