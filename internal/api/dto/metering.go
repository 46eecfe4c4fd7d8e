package dto

import (
	"time"

	"github.com/odiabackend099/callwaiting/internal/domain/account"
	"github.com/odiabackend099/callwaiting/internal/domain/eligibility"
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// NewValidator returns a validator that knows the metering enum tags
func NewValidator() *validator.Validator {
	v := validator.New()

	kinds := make([]string, 0, len(usage.Kinds))
	for _, k := range usage.Kinds {
		kinds = append(kinds, string(k))
	}
	v.RegisterEnum("usage_kind", kinds...)

	plans := make([]string, 0, len(plan.Types))
	for _, p := range plan.Types {
		plans = append(plans, string(p))
	}
	v.RegisterEnum("plan_type", plans...)

	v.RegisterEnum("surface",
		string(eligibility.SurfaceCall),
		string(eligibility.SurfaceTTS),
		string(eligibility.SurfaceInference),
	)
	return v
}

// CreateAccountRequest signs up a new trial account
type CreateAccountRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// AccountDTO is the public view of an account
type AccountDTO struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Plan                  plan.Type `json:"plan"`
	QuotaAllottedMinutes  int64     `json:"quota_allotted_minutes"`
	QuotaConsumedMinutes  int64     `json:"quota_consumed_minutes"`
	QuotaRemainingMinutes int64     `json:"quota_remaining_minutes"`
	PeriodStartedAt       time.Time `json:"period_started_at"`
	PeriodEndsAt          time.Time `json:"period_ends_at"`
	CreatedAt             time.Time `json:"created_at"`
}

// ToAccountDTO converts a domain account
func ToAccountDTO(a *account.Account) AccountDTO {
	return AccountDTO{
		ID:                    a.ID,
		Email:                 a.Email,
		Plan:                  a.Plan,
		QuotaAllottedMinutes:  a.QuotaAllottedMinutes,
		QuotaConsumedMinutes:  a.QuotaConsumedMinutes,
		QuotaRemainingMinutes: a.RemainingMinutes(),
		PeriodStartedAt:       a.PeriodStartedAt,
		PeriodEndsAt:          a.PeriodEndsAt,
		CreatedAt:             a.CreatedAt,
	}
}

// RecordUsageRequest reports a completed billable action
type RecordUsageRequest struct {
	AgentID   string            `json:"agent_id,omitempty" validate:"omitempty,max=128"`
	Kind      string            `json:"kind" validate:"required,usage_kind"`
	Seconds   int64             `json:"seconds" validate:"gt=0,lte=2678400"`
	CostCents *int64            `json:"cost_cents,omitempty" validate:"omitempty,gte=0"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TrialUsageRequest charges seconds against a free trial
type TrialUsageRequest struct {
	Seconds int64 `json:"seconds" validate:"gt=0,lte=2678400"`
}

// TrialUsageResponse reports whether trial seconds were charged
type TrialUsageResponse struct {
	Recorded bool          `json:"recorded"`
	Status   *trial.Status `json:"trial_status,omitempty"`
}

// CompleteCallRequest settles a finished call
type CompleteCallRequest struct {
	AgentID         string `json:"agent_id,omitempty" validate:"omitempty,max=128"`
	DurationSeconds int64  `json:"duration_seconds" validate:"gte=0,lte=2678400"`
}

// EligibilityRequest asks whether an action may start
type EligibilityRequest struct {
	AccountID        string `json:"account_id" validate:"required"`
	Surface          string `json:"surface" validate:"required,surface"`
	EstimatedSeconds int64  `json:"estimated_seconds" validate:"gte=0,lte=2678400"`
}

// ActivatePlanRequest is sent when a payment has been confirmed
type ActivatePlanRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Plan      string `json:"plan" validate:"required,plan_type"`
	Reference string `json:"reference,omitempty" validate:"omitempty,max=128"`
}

// InferenceRequest runs a metered completion
type InferenceRequest struct {
	AgentID string `json:"agent_id,omitempty" validate:"omitempty,max=128"`
	Prompt  string `json:"prompt" validate:"required,max=8000"`
}

// SpeechRequest runs a metered text-to-speech synthesis
type SpeechRequest struct {
	AgentID string `json:"agent_id,omitempty" validate:"omitempty,max=128"`
	Text    string `json:"text" validate:"required,max=4096"`
}
