package eligibility

import (
	"context"

	"github.com/odiabackend099/callwaiting/internal/domain/quota"
)

// Gate is the single admission point for billable actions
type Gate interface {
	// CanProceed decides whether an action on surface may start
	CanProceed(ctx context.Context, accountID string, estimatedSeconds int64, surface Surface) *quota.Decision

	// CompleteCall settles a finished call against the trial or the paid quota
	CompleteCall(ctx context.Context, accountID, agentID string, durationSeconds int64) (*CallCompletion, error)
}
