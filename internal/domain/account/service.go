package account

import (
	"context"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
)

// Service defines account lifecycle operations
type Service interface {
	// Signup creates a trial account with its trial state
	Signup(ctx context.Context, email string) (*Account, error)

	// Get retrieves an account
	Get(ctx context.Context, id string) (*Account, error)

	// List retrieves accounts with pagination
	List(ctx context.Context, limit, offset int) ([]*Account, int64, error)

	// ActivatePlan applies a confirmed payment
	ActivatePlan(ctx context.Context, id string, p plan.Type) (*Account, error)

	// ResetPeriod zeroes consumption and starts the next billing period
	ResetPeriod(ctx context.Context, id string) (*Account, error)

	// ResetDuePeriods resets every paid account whose period has ended
	ResetDuePeriods(ctx context.Context) (int, error)
}
