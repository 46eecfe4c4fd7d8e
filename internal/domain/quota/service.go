package quota

import "context"

// Ledger enforces and charges the per-account minute budget
type Ledger interface {
	// CheckWithinQuota is an advisory pre-check. It reserves nothing and
	// fails closed when account state cannot be read.
	CheckWithinQuota(ctx context.Context, accountID string, secondsNeeded int64) *Decision

	// RecordConsumption appends a usage event and charges its minutes.
	// Only validation failures are returned; storage failures are logged.
	RecordConsumption(ctx context.Context, c Consumption) error

	// GetUsageSummary reports usage for the current period
	GetUsageSummary(ctx context.Context, accountID string) (*Summary, error)
}
