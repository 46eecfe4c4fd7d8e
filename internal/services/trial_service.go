package services

import (
	"context"
	"strconv"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/metrics"
)

// settleAttempts bounds retries when a concurrent trial write wins the race
const settleAttempts = 3

// TrialService implements trial.Service
type TrialService struct {
	accounts account.Repository
	recorder usage.Recorder
	clock    clock.Clock
	logger   *logger.Logger
}

// NewTrialService creates a new trial service
func NewTrialService(accounts account.Repository, recorder usage.Recorder, clk clock.Clock, log *logger.Logger) *TrialService {
	if clk == nil {
		clk = clock.System{}
	}
	return &TrialService{
		accounts: accounts,
		recorder: recorder,
		clock:    clk,
		logger:   log,
	}
}

// load fetches the account and its trial row. A missing trial row is not an
// error; Evaluate reports it as not started.
func (s *TrialService) load(ctx context.Context, accountID string) (*account.Account, *account.TrialState, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	ts, err := s.accounts.GetTrial(ctx, accountID)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return a, nil, nil
		}
		return nil, nil, err
	}
	return a, ts, nil
}

// GetTrialStatus returns the derived trial status
func (s *TrialService) GetTrialStatus(ctx context.Context, accountID string) (*trial.Status, error) {
	a, ts, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return trial.Evaluate(a, ts, s.clock.Now()), nil
}

// CanMakeCall reports whether the account may start a call under its trial
func (s *TrialService) CanMakeCall(ctx context.Context, accountID string) (*trial.CallEligibility, error) {
	status, err := s.GetTrialStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &trial.CallEligibility{Status: status}
	switch status.State {
	case trial.StateActive, trial.StateConverted:
		result.CanCall = true
	case trial.StateExpired:
		result.Reason = trial.ReasonExpired
	case trial.StateExhausted:
		result.Reason = trial.ReasonExhausted
	default:
		result.Reason = trial.ReasonNotStarted
	}
	return result, nil
}

// RecordTrialUsage charges seconds against an active trial. Seconds that do
// not fit are refused outright, never clamped.
func (s *TrialService) RecordTrialUsage(ctx context.Context, accountID string, seconds int64) (bool, error) {
	if seconds <= 0 || seconds > usage.MaxEventSeconds {
		return false, errors.ValidationError("Trial usage must be between 1 and 2678400 seconds", map[string]int64{"seconds": seconds})
	}

	a, ts, err := s.load(ctx, accountID)
	if err != nil {
		return false, err
	}

	log := s.logger.ForAccount(accountID).With("seconds", seconds)

	status := trial.Evaluate(a, ts, s.clock.Now())
	if status.State != trial.StateActive {
		metrics.RecordTrialRejection(string(status.State))
		log.With("state", status.State).Info("Trial usage refused")
		return false, nil
	}
	if seconds > ts.RemainingSeconds() {
		metrics.RecordTrialRejection("overshoot")
		log.With("seconds_remaining", ts.RemainingSeconds()).Info("Trial usage would pass the cap")
		return false, nil
	}

	applied, err := s.charge(ctx, accountID, "", seconds, nil)
	if err != nil {
		return false, err
	}
	if !applied {
		metrics.RecordTrialRejection("overshoot")
	}
	return applied, nil
}

// CompleteTrialCall settles a finished call. The part that fits the remaining
// allowance is charged; the rest is reported as overage and never billed.
func (s *TrialService) CompleteTrialCall(ctx context.Context, accountID, agentID string, actualSeconds int64) (*trial.CallOutcome, error) {
	if actualSeconds < 0 || actualSeconds > usage.MaxEventSeconds {
		return nil, errors.ValidationError("Call duration must be between 0 and 2678400 seconds", map[string]int64{"duration_seconds": actualSeconds})
	}

	outcome := &trial.CallOutcome{ActualSeconds: actualSeconds}
	log := s.logger.ForAccount(accountID).WithFields(map[string]interface{}{
		"agent_id":       agentID,
		"actual_seconds": actualSeconds,
	})

	for attempt := 0; attempt < settleAttempts; attempt++ {
		a, ts, err := s.load(ctx, accountID)
		if err != nil {
			return nil, err
		}

		status := trial.Evaluate(a, ts, s.clock.Now())
		outcome.Status = status
		if actualSeconds == 0 {
			return outcome, nil
		}
		if status.State != trial.StateActive {
			break
		}

		charge := actualSeconds
		if remaining := ts.RemainingSeconds(); charge > remaining {
			charge = remaining
		}

		meta := map[string]string{usage.MetaActualSeconds: strconv.FormatInt(actualSeconds, 10)}
		if over := actualSeconds - charge; over > 0 {
			meta[usage.MetaOverageSeconds] = strconv.FormatInt(over, 10)
		}

		applied, err := s.charge(ctx, accountID, agentID, charge, meta)
		if err != nil {
			return nil, err
		}
		if applied {
			outcome.RecordedSeconds = charge
			break
		}
	}

	outcome.OverageSeconds = actualSeconds - outcome.RecordedSeconds
	if outcome.RecordedSeconds == 0 {
		s.recordUncharged(ctx, accountID, agentID, actualSeconds, outcome.Status.State)
	}
	if outcome.OverageSeconds > 0 {
		metrics.RecordTrialOverage(outcome.OverageSeconds)
		log.WithFields(map[string]interface{}{
			"recorded_seconds": outcome.RecordedSeconds,
			"overage_seconds":  outcome.OverageSeconds,
		}).Warn("Trial call ran past the remaining allowance")
	}

	if status, err := s.GetTrialStatus(ctx, accountID); err == nil {
		outcome.Status = status
	}
	return outcome, nil
}

// recordUncharged appends an audit event for a call the trial could not
// absorb. The trial counter is left alone.
func (s *TrialService) recordUncharged(ctx context.Context, accountID, agentID string, seconds int64, state trial.State) {
	e := &usage.Event{
		AccountID:       accountID,
		Kind:            usage.KindCallTrial,
		SecondsConsumed: seconds,
		Metadata: map[string]string{
			usage.MetaActualSeconds:  strconv.FormatInt(seconds, 10),
			usage.MetaOverageSeconds: strconv.FormatInt(seconds, 10),
			usage.MetaTrialState:     string(state),
		},
	}
	if agentID != "" {
		e.AgentID = &agentID
	}
	if _, err := s.recorder.Record(ctx, e); err != nil {
		metrics.RecordLedgerWriteFailure("trial_event")
		s.logger.ForAccount(accountID).ErrorWithErr(err, "Failed to record uncharged trial call")
	}
}

// charge applies the conditional counter update and then appends the matching
// call-trial event. A failed event write is logged; the charge stands.
func (s *TrialService) charge(ctx context.Context, accountID, agentID string, seconds int64, meta map[string]string) (bool, error) {
	applied, err := s.accounts.IncrementTrialSeconds(ctx, accountID, seconds)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	metrics.RecordTrialSeconds(seconds)

	e := &usage.Event{
		AccountID:       accountID,
		Kind:            usage.KindCallTrial,
		SecondsConsumed: seconds,
		Metadata:        meta,
	}
	if agentID != "" {
		e.AgentID = &agentID
	}
	if _, err := s.recorder.Record(ctx, e); err != nil {
		metrics.RecordLedgerWriteFailure("trial_event")
		s.logger.ForAccount(accountID).ErrorWithErr(err, "Failed to record trial usage event")
	}
	return true, nil
}
