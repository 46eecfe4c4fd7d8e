package quota

import (
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
)

// Reason is a machine-readable denial code
type Reason string

// Denial reasons
const (
	ReasonQuotaExceeded      Reason = "quota_exceeded"
	ReasonTrialExpired       Reason = "trial_expired"
	ReasonTrialExhausted     Reason = "trial_exhausted"
	ReasonEligibilityUnknown Reason = "eligibility_unknown"
)

// Display messages shown to end users
const (
	MessageQuotaExceeded      = "Quota exceeded. Please upgrade your plan."
	MessageTrialExpired       = "Free trial has expired. Please upgrade to continue."
	MessageTrialExhausted     = "Free trial minutes exhausted. Please upgrade to continue."
	MessageEligibilityUnknown = "Unable to verify eligibility. Please try again."
)

// Decision is the outcome of an admission check. Denials are values, not errors.
type Decision struct {
	Allowed          bool          `json:"allowed"`
	Reason           Reason        `json:"reason,omitempty"`
	Message          string        `json:"message,omitempty"`
	Plan             plan.Type     `json:"plan,omitempty"`
	MinutesNeeded    int64         `json:"minutes_needed"`
	MinutesUsed      int64         `json:"minutes_used"`
	MinutesQuota     int64         `json:"minutes_quota"`
	MinutesRemaining int64         `json:"minutes_remaining"`
	Trial            *trial.Status `json:"trial,omitempty"`
}

// Deny builds a denied decision with the display message for reason
func Deny(reason Reason) *Decision {
	return &Decision{Allowed: false, Reason: reason, Message: MessageFor(reason)}
}

// MessageFor returns the display message for a denial reason
func MessageFor(reason Reason) string {
	switch reason {
	case ReasonQuotaExceeded:
		return MessageQuotaExceeded
	case ReasonTrialExpired:
		return MessageTrialExpired
	case ReasonTrialExhausted:
		return MessageTrialExhausted
	default:
		return MessageEligibilityUnknown
	}
}

// Summary reports quota use for the current period
type Summary struct {
	AccountID    string    `json:"account_id"`
	MinutesUsed  int64     `json:"minutes_used"`
	MinutesQuota int64     `json:"minutes_quota"`
	Remaining    int64     `json:"remaining"`
	Plan         plan.Type `json:"plan"`
}

// Consumption is a completed billable action to charge against the ledger
type Consumption struct {
	AccountID string
	AgentID   string
	Kind      usage.Kind
	Seconds   int64
	CostCents *int64
	Metadata  map[string]string
}

// MinutesFor converts seconds to billable minutes, rounding up
func MinutesFor(seconds int64) int64 {
	if seconds <= 0 {
		return 0
	}
	minutes := seconds / 60
	if seconds%60 != 0 {
		minutes++
	}
	return minutes
}
