package account

import (
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
)

// Account is one paying or trialing customer and its quota ledger
type Account struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Plan                 plan.Type `json:"plan"`
	QuotaAllottedMinutes int64     `json:"quota_allotted_minutes"`
	QuotaConsumedMinutes int64     `json:"quota_consumed_minutes"`
	PeriodStartedAt      time.Time `json:"period_started_at"`
	PeriodEndsAt         time.Time `json:"period_ends_at"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RemainingMinutes is the unconsumed allotment, never negative
func (a *Account) RemainingMinutes() int64 {
	if r := a.QuotaAllottedMinutes - a.QuotaConsumedMinutes; r > 0 {
		return r
	}
	return 0
}

// TrialState tracks the free-trial call allowance of an account.
// SecondsUsed never exceeds CapSeconds.
type TrialState struct {
	AccountID   string    `json:"account_id"`
	StartedAt   time.Time `json:"started_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CapSeconds  int64     `json:"cap_seconds"`
	SecondsUsed int64     `json:"seconds_used"`
}

// RemainingSeconds is the unused trial allowance, never negative
func (t *TrialState) RemainingSeconds() int64 {
	if r := t.CapSeconds - t.SecondsUsed; r > 0 {
		return r
	}
	return 0
}

// Trial defaults
const (
	DefaultTrialCapSeconds = 300
	DefaultTrialWindow     = 30 * 24 * time.Hour
	DefaultBillingPeriod   = 30 * 24 * time.Hour
)
