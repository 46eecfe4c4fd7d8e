package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/odiabackend099/callwaiting/internal/domain/usage"
)

// UsageEventRepository is an append-only in-memory event log
type UsageEventRepository struct {
	mu     sync.RWMutex
	events map[string][]usage.Event
}

// NewUsageEventRepository creates an empty log
func NewUsageEventRepository() *UsageEventRepository {
	return &UsageEventRepository{events: make(map[string][]usage.Event)}
}

// Append stores a copy of e
func (r *UsageEventRepository) Append(_ context.Context, e *usage.Event) error {
	stored := *e
	if e.Metadata != nil {
		stored.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			stored.Metadata[k] = v
		}
	}

	r.mu.Lock()
	r.events[e.AccountID] = append(r.events[e.AccountID], stored)
	r.mu.Unlock()
	return nil
}

// ListByAccount returns matching events newest first
func (r *UsageEventRepository) ListByAccount(_ context.Context, accountID string, opts usage.ListOptions) ([]*usage.Event, int64, error) {
	r.mu.RLock()
	var matched []*usage.Event
	for i := range r.events[accountID] {
		e := r.events[accountID][i]
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if !opts.Since.IsZero() && e.RecordedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && !e.RecordedAt.Before(opts.Until) {
			continue
		}
		matched = append(matched, &e)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].RecordedAt.After(matched[j].RecordedAt) })

	total := int64(len(matched))
	if opts.Offset >= len(matched) {
		return []*usage.Event{}, total, nil
	}
	end := len(matched)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return matched[opts.Offset:end], total, nil
}
