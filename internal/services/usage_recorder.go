package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/internal/pkg/validator"
)

// UsageRecorder implements usage.Recorder
type UsageRecorder struct {
	repo      usage.Repository
	clock     clock.Clock
	validator *validator.Validator
	logger    *logger.Logger
}

// NewUsageRecorder creates a new usage recorder
func NewUsageRecorder(repo usage.Repository, clk clock.Clock, log *logger.Logger) *UsageRecorder {
	if clk == nil {
		clk = clock.System{}
	}
	v := validator.New()
	kinds := make([]string, 0, len(usage.Kinds))
	for _, k := range usage.Kinds {
		kinds = append(kinds, string(k))
	}
	v.RegisterEnum("usage_kind", kinds...)

	return &UsageRecorder{
		repo:      repo,
		clock:     clk,
		validator: v,
		logger:    log,
	}
}

// Validate checks an event without storing it
func (r *UsageRecorder) Validate(e *usage.Event) error {
	if e == nil {
		return errors.ValidationError("Usage event is required", nil)
	}
	if errs := r.validator.Validate(e); len(errs) > 0 {
		return errors.ValidationError("Invalid usage event", errs)
	}
	return nil
}

// Record validates, stamps and appends an event
func (r *UsageRecorder) Record(ctx context.Context, e *usage.Event) (*usage.Event, error) {
	if err := r.Validate(e); err != nil {
		return nil, err
	}

	stored := *e
	stored.ID = uuid.NewString()
	stored.RecordedAt = r.clock.Now()

	if err := r.repo.Append(ctx, &stored); err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"account_id": stored.AccountID,
		"event_id":   stored.ID,
		"kind":       stored.Kind,
		"seconds":    stored.SecondsConsumed,
	}).Debug("Usage event recorded")

	return &stored, nil
}

// List returns an account's events
func (r *UsageRecorder) List(ctx context.Context, accountID string, opts usage.ListOptions) ([]*usage.Event, int64, error) {
	return r.repo.ListByAccount(ctx, accountID, opts)
}
