package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/services"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteUsageWorkbook(t *testing.T) {
	agent := "agent-1"
	cost := int64(12)
	events := []*usage.Event{
		{ID: "e1", AccountID: "a1", Kind: usage.KindInference, SecondsConsumed: 30, RecordedAt: testutil.Epoch},
		{
			ID: "e2", AccountID: "a1", Kind: usage.KindTTS, SecondsConsumed: 90, AgentID: &agent, CostCents: &cost,
			Metadata: map[string]string{"source": "openai.speech", "model": "tts-1"}, RecordedAt: testutil.Epoch,
		},
		{ID: "e3", AccountID: "a1", Kind: usage.KindInference, SecondsConsumed: 61, RecordedAt: testutil.Epoch},
	}
	summary := &quota.Summary{AccountID: "a1", Plan: plan.TypeBasic, MinutesQuota: 500, MinutesUsed: 7, Remaining: 493}

	var buf bytes.Buffer
	require.NoError(t, WriteUsageWorkbook(&buf, summary, events, testutil.Epoch))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{summarySheet, eventsSheet}, f.GetSheetList())

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"account_id", "a1"}, rows[0])
	assert.Equal(t, []string{"plan", "basic"}, rows[1])
	assert.Equal(t, []string{"minutes_remaining", "493"}, rows[4])
	assert.Contains(t, rows, []string{"tts", "90", "2"})
	assert.Contains(t, rows, []string{"inference", "91", "3"})

	rows, err = f.GetRows(eventsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "recorded_at", rows[0][0])
	assert.Equal(t, []string{
		"2026-03-01T09:00:00Z", "e2", "tts", "agent-1", "90", "2", "12", "model=tts-1; source=openai.speech",
	}, rows[2])
}

func TestUsageExporter_Export(t *testing.T) {
	accounts := testutil.NewMockAccountRepository()
	events := testutil.NewMockUsageRepository()
	clk := testutil.NewClock()
	log := testutil.NewLogger()
	recorder := services.NewUsageRecorder(events, clk, log)
	ledger := services.NewQuotaLedger(accounts, recorder, log)

	require.NoError(t, testutil.SeedAccount(accounts, "a1", plan.TypePro, 5000, 0, testutil.NewTrial("a1", 300, 0)))
	for _, secs := range []int64{60, 61, 5} {
		require.NoError(t, ledger.RecordConsumption(t.Context(), quota.Consumption{
			AccountID: "a1", Kind: usage.KindInference, Seconds: secs,
		}))
	}

	var buf bytes.Buffer
	n, err := NewUsageExporter(ledger, recorder).Export(t.Context(), &buf, "a1", usage.ListOptions{}, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f := openWorkbook(t, buf.Bytes())
	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"minutes_used", "4"}, rows[3])

	rows, err = f.GetRows(eventsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestUsageExporter_UnknownAccount(t *testing.T) {
	accounts := testutil.NewMockAccountRepository()
	events := testutil.NewMockUsageRepository()
	log := testutil.NewLogger()
	recorder := services.NewUsageRecorder(events, testutil.NewClock(), log)
	ledger := services.NewQuotaLedger(accounts, recorder, log)

	var buf bytes.Buffer
	_, err := NewUsageExporter(ledger, recorder).Export(t.Context(), &buf, "ghost", usage.ListOptions{}, testutil.Epoch)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
