package client

import (
	"context"
	"io"
	"time"
)

// UsageService handles usage API calls
type UsageService struct {
	client *Client
}

// RecordUsageRequest reports a completed billable action
type RecordUsageRequest struct {
	AgentID   string            `json:"agent_id,omitempty"`
	Kind      string            `json:"kind"`
	Seconds   int64             `json:"seconds"`
	CostCents *int64            `json:"cost_cents,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventListOptions filters the audit log
type EventListOptions struct {
	ListOptions
	Kind  string
	Since time.Time
	Until time.Time
}

// Summary retrieves the current period's usage
func (s *UsageService) Summary(ctx context.Context, accountID string) (*UsageSummary, error) {
	var sum UsageSummary
	if err := s.client.doRequest(ctx, "GET", accountPath(accountID, "/usage"), nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Record charges a completed billable action
func (s *UsageService) Record(ctx context.Context, accountID string, req RecordUsageRequest) error {
	return s.client.doRequest(ctx, "POST", accountPath(accountID, "/usage"), req, nil)
}

// Events retrieves a page of the audit log, newest first
func (s *UsageService) Events(ctx context.Context, accountID string, opts *EventListOptions) (*Page[UsageEvent], error) {
	path := accountPath(accountID, "/usage/events") + eventQuery(opts)

	var page Page[UsageEvent]
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Export writes the XLSX audit export to w and returns the bytes written
func (s *UsageService) Export(ctx context.Context, accountID string, opts *EventListOptions, w io.Writer) (int64, error) {
	return s.client.download(ctx, accountPath(accountID, "/usage/export")+eventQuery(opts), w)
}

func eventQuery(opts *EventListOptions) string {
	if opts == nil {
		return ""
	}
	q := paginationQuery(&opts.ListOptions)
	if opts.Kind != "" {
		q.Set("kind", opts.Kind)
	}
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		q.Set("until", opts.Until.UTC().Format(time.RFC3339))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
