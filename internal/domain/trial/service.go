package trial

import "context"

// Service is the trial state machine
type Service interface {
	// CanMakeCall reports whether the account may start a trial call
	CanMakeCall(ctx context.Context, accountID string) (*CallEligibility, error)

	// GetTrialStatus returns the derived trial status
	GetTrialStatus(ctx context.Context, accountID string) (*Status, error)

	// RecordTrialUsage charges seconds against the trial. It returns false and
	// changes nothing when the trial is not active or the seconds do not fit.
	RecordTrialUsage(ctx context.Context, accountID string, seconds int64) (bool, error)

	// CompleteTrialCall settles a finished call, charging at most the remaining
	// allowance and reporting the rest as overage
	CompleteTrialCall(ctx context.Context, accountID, agentID string, actualSeconds int64) (*CallOutcome, error)
}
