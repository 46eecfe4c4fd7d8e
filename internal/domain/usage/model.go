package usage

import "time"

// Kind classifies a billable event
type Kind string

// Usage kinds
const (
	KindTTS       Kind = "tts"
	KindInference Kind = "inference"
	KindCallTrial Kind = "call-trial"
	KindCall      Kind = "call"
)

// Kinds lists every recognised kind.
var Kinds = []Kind{KindTTS, KindInference, KindCallTrial, KindCall}

// Valid reports whether k is recognised
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// MaxEventSeconds caps a single event at one 31-day month of audio.
// The validate tags below repeat it as a literal.
const MaxEventSeconds int64 = 31 * 24 * 60 * 60

// Event is an immutable record of one billable action
type Event struct {
	ID              string            `json:"id"`
	AccountID       string            `json:"account_id" validate:"required"`
	AgentID         *string           `json:"agent_id,omitempty"`
	Kind            Kind              `json:"kind" validate:"required,usage_kind"`
	SecondsConsumed int64             `json:"seconds_consumed" validate:"gt=0,lte=2678400"`
	CostCents       *int64            `json:"cost_cents,omitempty" validate:"omitempty,gte=0"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RecordedAt      time.Time         `json:"recorded_at"`
}

// ListOptions filters an account's event log
type ListOptions struct {
	Kind   Kind
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Metadata keys written by the metering services
const (
	MetaActualSeconds  = "actual_seconds"
	MetaOverageSeconds = "overage_seconds"
	MetaTrialState     = "trial_state"
	MetaModel          = "model"
	MetaSource         = "source"
)
