package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
)

const (
	summarySheet = "Summary"
	eventsSheet  = "Events"
	pageSize     = 500
)

var eventHeader = []interface{}{
	"recorded_at", "event_id", "kind", "agent_id", "seconds", "billable_minutes", "cost_cents", "metadata",
}

// UsageExporter writes an account's usage audit log to an XLSX workbook
type UsageExporter struct {
	ledger   quota.Ledger
	recorder usage.Recorder
}

// NewUsageExporter creates a new exporter
func NewUsageExporter(ledger quota.Ledger, recorder usage.Recorder) *UsageExporter {
	return &UsageExporter{ledger: ledger, recorder: recorder}
}

// Export writes the summary and every event matching opts to w.
// Limit and Offset in opts are ignored; the whole range is exported.
func (e *UsageExporter) Export(ctx context.Context, w io.Writer, accountID string, opts usage.ListOptions, generatedAt time.Time) (int, error) {
	summary, err := e.ledger.GetUsageSummary(ctx, accountID)
	if err != nil {
		return 0, err
	}

	var events []*usage.Event
	opts.Offset = 0
	opts.Limit = pageSize
	for {
		page, total, err := e.recorder.List(ctx, accountID, opts)
		if err != nil {
			return 0, err
		}
		events = append(events, page...)
		opts.Offset += len(page)
		if len(page) == 0 || int64(opts.Offset) >= total {
			break
		}
	}

	if err := WriteUsageWorkbook(w, summary, events, generatedAt); err != nil {
		return 0, err
	}
	return len(events), nil
}

// WriteUsageWorkbook renders a summary sheet and an events sheet
func WriteUsageWorkbook(w io.Writer, summary *quota.Summary, events []*usage.Event, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	byKind := make(map[usage.Kind][2]int64)
	for _, ev := range events {
		agg := byKind[ev.Kind]
		agg[0] += ev.SecondsConsumed
		agg[1] += quota.MinutesFor(ev.SecondsConsumed)
		byKind[ev.Kind] = agg
	}

	rows := [][]interface{}{
		{"account_id", summary.AccountID},
		{"plan", string(summary.Plan)},
		{"minutes_quota", summary.MinutesQuota},
		{"minutes_used", summary.MinutesUsed},
		{"minutes_remaining", summary.Remaining},
		{"events", len(events)},
		{"generated_at", generatedAt.UTC().Format(time.RFC3339)},
		{},
		{"kind", "seconds", "billable_minutes"},
	}
	for _, k := range usage.Kinds {
		if agg, ok := byKind[k]; ok {
			rows = append(rows, []interface{}{string(k), agg[0], agg[1]})
		}
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(eventsSheet); err != nil {
		return fmt.Errorf("failed to add events sheet: %w", err)
	}
	rows = [][]interface{}{eventHeader}
	for _, ev := range events {
		rows = append(rows, eventRow(ev))
	}
	if err := writeRows(f, eventsSheet, rows); err != nil {
		return err
	}

	if err := f.SetColWidth(eventsSheet, "A", "B", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(eventsSheet, "H", "H", 60); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func eventRow(ev *usage.Event) []interface{} {
	agent := ""
	if ev.AgentID != nil {
		agent = *ev.AgentID
	}
	var cost interface{} = ""
	if ev.CostCents != nil {
		cost = *ev.CostCents
	}
	return []interface{}{
		ev.RecordedAt.UTC().Format(time.RFC3339),
		ev.ID,
		string(ev.Kind),
		agent,
		ev.SecondsConsumed,
		quota.MinutesFor(ev.SecondsConsumed),
		cost,
		formatMetadata(ev.Metadata),
	}
}

// formatMetadata renders metadata as sorted key=value pairs
func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+meta[k])
	}
	return strings.Join(parts, "; ")
}
