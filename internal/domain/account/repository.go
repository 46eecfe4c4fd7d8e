package account

import (
	"context"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
)

// Repository defines data access for accounts and their trial state.
// Counter mutations must be single atomic read-modify-writes per account.
type Repository interface {
	// Create stores an account together with its trial state
	Create(ctx context.Context, a *Account, trial *TrialState) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetTrial retrieves the trial state of an account
	GetTrial(ctx context.Context, accountID string) (*TrialState, error)

	// List retrieves accounts with pagination
	List(ctx context.Context, limit, offset int) ([]*Account, int64, error)

	// IncrementConsumed adds minutes to the consumed counter
	IncrementConsumed(ctx context.Context, id string, minutes int64) error

	// IncrementTrialSeconds adds seconds to the trial counter unless that
	// would pass the cap, in which case it reports false and changes nothing
	IncrementTrialSeconds(ctx context.Context, accountID string, seconds int64) (bool, error)

	// ActivatePlan switches plan, sets the allotment and opens a fresh period
	ActivatePlan(ctx context.Context, id string, p plan.Type, allottedMinutes int64, periodStart, periodEnd time.Time) error

	// ResetPeriod zeroes consumption and opens a new period in one step
	ResetPeriod(ctx context.Context, id string, periodStart, periodEnd time.Time) error

	// ListDueForReset returns paid accounts whose period ended at or before now
	ListDueForReset(ctx context.Context, now time.Time, limit int) ([]*Account, error)
}
