package trial

import (
	"math"
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
)

// State of a free trial. It is derived on read and never stored.
type State string

// Trial states
const (
	StateNotStarted State = "not_started"
	StateActive     State = "active"
	StateExpired    State = "expired"
	StateExhausted  State = "exhausted"
	StateConverted  State = "converted"
)

// Reason explains why a trial call is refused
type Reason string

// Refusal reasons
const (
	ReasonExpired    Reason = "expired"
	ReasonExhausted  Reason = "exhausted"
	ReasonNotStarted Reason = "not_started"
)

// Status is the read model of a trial
type Status struct {
	State            State     `json:"state"`
	SecondsUsed      int64     `json:"seconds_used"`
	CapSeconds       int64     `json:"cap_seconds"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	DaysRemaining    int64     `json:"days_remaining"`
	StartedAt        time.Time `json:"started_at,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
}

// CallEligibility answers whether a trial account may place a call
type CallEligibility struct {
	CanCall bool    `json:"can_call"`
	Reason  Reason  `json:"reason,omitempty"`
	Status  *Status `json:"trial_status"`
}

// CallOutcome reports how a finished call was charged against the trial
type CallOutcome struct {
	ActualSeconds   int64   `json:"actual_seconds"`
	RecordedSeconds int64   `json:"recorded_seconds"`
	OverageSeconds  int64   `json:"overage_seconds"`
	Status          *Status `json:"trial_status"`
}

// Evaluate derives the trial status of an account at now.
// A converted plan wins, then expiry, then exhaustion.
func Evaluate(a *account.Account, ts *account.TrialState, now time.Time) *Status {
	st := &Status{}
	if ts != nil {
		st.SecondsUsed = ts.SecondsUsed
		st.CapSeconds = ts.CapSeconds
		st.SecondsRemaining = ts.RemainingSeconds()
		st.DaysRemaining = daysRemaining(ts.ExpiresAt, now)
		st.StartedAt = ts.StartedAt
		st.ExpiresAt = ts.ExpiresAt
	}

	switch {
	case a != nil && a.Plan.IsPaid():
		st.State = StateConverted
	case ts == nil:
		st.State = StateNotStarted
	case now.After(ts.ExpiresAt):
		st.State = StateExpired
	case ts.SecondsUsed >= ts.CapSeconds:
		st.State = StateExhausted
	default:
		st.State = StateActive
	}
	return st
}

func daysRemaining(expiresAt, now time.Time) int64 {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int64(math.Ceil(left.Seconds() / 86400))
}
