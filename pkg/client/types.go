package client

import "time"

// Account is a paying or trialing customer
type Account struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Plan                  string    `json:"plan"`
	QuotaAllottedMinutes  int64     `json:"quota_allotted_minutes"`
	QuotaConsumedMinutes  int64     `json:"quota_consumed_minutes"`
	QuotaRemainingMinutes int64     `json:"quota_remaining_minutes"`
	PeriodStartedAt       time.Time `json:"period_started_at"`
	PeriodEndsAt          time.Time `json:"period_ends_at"`
	CreatedAt             time.Time `json:"created_at"`
}

// Plan is one entry of the plan catalog
type Plan struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Minutes     int64  `json:"minutes"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// UsageSummary reports quota use for the current period
type UsageSummary struct {
	AccountID    string `json:"account_id"`
	MinutesUsed  int64  `json:"minutes_used"`
	MinutesQuota int64  `json:"minutes_quota"`
	Remaining    int64  `json:"remaining"`
	Plan         string `json:"plan"`
}

// UsageEvent is one entry of the usage audit log
type UsageEvent struct {
	ID              string            `json:"id"`
	AccountID       string            `json:"account_id"`
	AgentID         *string           `json:"agent_id,omitempty"`
	Kind            string            `json:"kind"`
	SecondsConsumed int64             `json:"seconds_consumed"`
	CostCents       *int64            `json:"cost_cents,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RecordedAt      time.Time         `json:"recorded_at"`
}

// TrialStatus is the derived state of a free trial
type TrialStatus struct {
	State            string    `json:"state"`
	SecondsUsed      int64     `json:"seconds_used"`
	CapSeconds       int64     `json:"cap_seconds"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	DaysRemaining    int64     `json:"days_remaining"`
	StartedAt        time.Time `json:"started_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// TrialEligibility answers whether a trial call may start
type TrialEligibility struct {
	CanCall bool         `json:"can_call"`
	Reason  string       `json:"reason,omitempty"`
	Status  *TrialStatus `json:"trial_status"`
}

// Decision is the outcome of an eligibility check
type Decision struct {
	Allowed          bool         `json:"allowed"`
	Reason           string       `json:"reason,omitempty"`
	Message          string       `json:"message,omitempty"`
	Plan             string       `json:"plan,omitempty"`
	MinutesNeeded    int64        `json:"minutes_needed"`
	MinutesUsed      int64        `json:"minutes_used"`
	MinutesQuota     int64        `json:"minutes_quota"`
	MinutesRemaining int64        `json:"minutes_remaining"`
	Trial            *TrialStatus `json:"trial,omitempty"`
}

// CallCompletion reports how a finished call was settled
type CallCompletion struct {
	AccountID      string `json:"account_id"`
	Plan           string `json:"plan"`
	Seconds        int64  `json:"seconds"`
	ChargedMinutes int64  `json:"charged_minutes,omitempty"`
	Trial          *struct {
		ActualSeconds   int64        `json:"actual_seconds"`
		RecordedSeconds int64        `json:"recorded_seconds"`
		OverageSeconds  int64        `json:"overage_seconds"`
		Status          *TrialStatus `json:"trial_status"`
	} `json:"trial,omitempty"`
}

// Page is a paginated list
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ListOptions contains pagination options
type ListOptions struct {
	Page     int
	PageSize int
}

// HealthResponse is the liveness or readiness payload
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
