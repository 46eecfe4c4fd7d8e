package eligibility

import (
	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
)

// Surface is the kind of billable action being admitted
type Surface string

// Surfaces
const (
	SurfaceCall      Surface = "call"
	SurfaceTTS       Surface = "tts"
	SurfaceInference Surface = "inference"
)

// Valid reports whether s is a known surface
func (s Surface) Valid() bool {
	return s == SurfaceCall || s == SurfaceTTS || s == SurfaceInference
}

// CallCompletion reports how a finished call was settled
type CallCompletion struct {
	AccountID      string             `json:"account_id"`
	Plan           plan.Type          `json:"plan"`
	Seconds        int64              `json:"seconds"`
	ChargedMinutes int64              `json:"charged_minutes,omitempty"`
	Trial          *trial.CallOutcome `json:"trial,omitempty"`
}
