package services

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odiabackend099/callwaiting/internal/domain/plan"
	"github.com/odiabackend099/callwaiting/internal/domain/trial"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/testutil"
)

func TestTrialService_CanMakeCall(t *testing.T) {
	tests := []struct {
		name      string
		used      int64
		advance   time.Duration
		canCall   bool
		reason    trial.Reason
		remaining int64
		days      int64
	}{
		{"fresh trial", 0, 0, true, "", 300, 30},
		{"partly used", 120, 36 * time.Hour, true, "", 180, 29},
		{"exhausted", 300, time.Hour, false, trial.ReasonExhausted, 0, 30},
		{"expired with nothing used", 0, 31 * 24 * time.Hour, false, trial.ReasonExpired, 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMeteringFixture(t)
			f.trialAccount(t, "acct", 300, tt.used)
			f.clock.Advance(tt.advance)

			got, err := f.trials.CanMakeCall(context.Background(), "acct")
			require.NoError(t, err)
			assert.Equal(t, tt.canCall, got.CanCall)
			assert.Equal(t, tt.reason, got.Reason)
			require.NotNil(t, got.Status)
			assert.Equal(t, tt.remaining, got.Status.SecondsRemaining)
			assert.Equal(t, tt.days, got.Status.DaysRemaining)
		})
	}
}

func TestTrialService_CanMakeCallConverted(t *testing.T) {
	f := newMeteringFixture(t)
	f.paidAccount(t, "acct", plan.TypePro, 5000, 0)
	f.clock.Advance(90 * 24 * time.Hour)

	got, err := f.trials.CanMakeCall(context.Background(), "acct")
	require.NoError(t, err)
	assert.True(t, got.CanCall)
	assert.Empty(t, got.Reason)
	assert.Equal(t, trial.StateConverted, got.Status.State)
}

func TestTrialService_CanMakeCallStorageError(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 0)
	f.accounts.GetTrialError = testutil.ErrStorage

	_, err := f.trials.CanMakeCall(context.Background(), "acct")
	assert.ErrorIs(t, err, errors.ErrDatabase)
}

func TestTrialService_RecordTrialUsage(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 3600, 3550)
	ctx := context.Background()

	ok, err := f.trials.RecordTrialUsage(ctx, "acct", 60)
	require.NoError(t, err)
	assert.False(t, ok, "overshoot must be refused")
	assert.Equal(t, int64(3550), f.trialUsed(t, "acct"))
	assert.Empty(t, f.events.Events("acct"))

	ok, err = f.trials.RecordTrialUsage(ctx, "acct", 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3600), f.trialUsed(t, "acct"))

	events := f.events.Events("acct")
	require.Len(t, events, 1)
	assert.Equal(t, usage.KindCallTrial, events[0].Kind)
	assert.Equal(t, int64(50), events[0].SecondsConsumed)

	status, err := f.trials.GetTrialStatus(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, trial.StateExhausted, status.State)
}

func TestTrialService_RecordTrialUsageRejections(t *testing.T) {
	t.Run("non-positive seconds", func(t *testing.T) {
		f := newMeteringFixture(t)
		f.trialAccount(t, "acct", 300, 0)

		_, err := f.trials.RecordTrialUsage(context.Background(), "acct", 0)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("expired", func(t *testing.T) {
		f := newMeteringFixture(t)
		f.trialAccount(t, "acct", 300, 0)
		f.clock.Advance(31 * 24 * time.Hour)

		ok, err := f.trials.RecordTrialUsage(context.Background(), "acct", 10)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, f.accounts.TrialIncrementCalls)
	})

	t.Run("converted", func(t *testing.T) {
		f := newMeteringFixture(t)
		f.paidAccount(t, "acct", plan.TypeBasic, 500, 0)

		ok, err := f.trials.RecordTrialUsage(context.Background(), "acct", 10)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("storage error", func(t *testing.T) {
		f := newMeteringFixture(t)
		f.trialAccount(t, "acct", 300, 0)
		f.accounts.TrialIncrementError = testutil.ErrStorage

		ok, err := f.trials.RecordTrialUsage(context.Background(), "acct", 10)
		assert.False(t, ok)
		assert.ErrorIs(t, err, errors.ErrDatabase)
	})
}

func TestTrialService_RecordTrialUsageEventFailureKeepsCharge(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 0)
	f.events.AppendError = testutil.ErrStorage

	ok, err := f.trials.RecordTrialUsage(context.Background(), "acct", 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(30), f.trialUsed(t, "acct"))
}

func TestTrialService_ConcurrentUsageNeverPassesCap(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 0)

	var applied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.trials.RecordTrialUsage(context.Background(), "acct", 20)
			assert.NoError(t, err)
			if ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(15), applied.Load())
	assert.Equal(t, int64(300), f.trialUsed(t, "acct"))
	assert.Len(t, f.events.Events("acct"), 15)
}

func TestTrialService_CompleteTrialCall(t *testing.T) {
	tests := []struct {
		name     string
		used     int64
		actual   int64
		recorded int64
		overage  int64
		state    trial.State
	}{
		{"fits", 100, 45, 45, 0, trial.StateActive},
		{"runs past the cap", 250, 90, 50, 40, trial.StateExhausted},
		{"nothing left", 300, 30, 0, 30, trial.StateExhausted},
		{"zero length call", 100, 0, 0, 0, trial.StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMeteringFixture(t)
			f.trialAccount(t, "acct", 300, tt.used)

			out, err := f.trials.CompleteTrialCall(context.Background(), "acct", "agent-1", tt.actual)
			require.NoError(t, err)
			assert.Equal(t, tt.actual, out.ActualSeconds)
			assert.Equal(t, tt.recorded, out.RecordedSeconds)
			assert.Equal(t, tt.overage, out.OverageSeconds)
			assert.Equal(t, tt.state, out.Status.State)
			assert.Equal(t, tt.used+tt.recorded, f.trialUsed(t, "acct"))

			events := f.events.Events("acct")
			if tt.actual == 0 {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			if tt.recorded == 0 {
				// audited at full length, trial counter untouched
				assert.Equal(t, tt.actual, events[0].SecondsConsumed)
				assert.Equal(t, string(tt.state), events[0].Metadata[usage.MetaTrialState])
				return
			}
			assert.Equal(t, tt.recorded, events[0].SecondsConsumed)
			assert.Equal(t, usage.KindCallTrial, events[0].Kind)
			if tt.overage > 0 {
				assert.Equal(t, "40", events[0].Metadata[usage.MetaOverageSeconds])
				assert.Equal(t, "90", events[0].Metadata[usage.MetaActualSeconds])
			}
		})
	}
}

func TestTrialService_CompleteTrialCallAfterExpiryIsAudited(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 100)

	// admitted while active, finished after the window closed
	f.clock.Advance(30*24*time.Hour + time.Minute)

	out, err := f.trials.CompleteTrialCall(context.Background(), "acct", "agent-1", 75)
	require.NoError(t, err)
	assert.Equal(t, trial.StateExpired, out.Status.State)
	assert.Zero(t, out.RecordedSeconds)
	assert.Equal(t, int64(75), out.OverageSeconds)
	assert.Equal(t, int64(100), f.trialUsed(t, "acct"))
	assert.Zero(t, f.accounts.TrialIncrementCalls)

	events := f.events.Events("acct")
	require.Len(t, events, 1)
	assert.Equal(t, usage.KindCallTrial, events[0].Kind)
	assert.Equal(t, int64(75), events[0].SecondsConsumed)
	assert.Equal(t, "75", events[0].Metadata[usage.MetaActualSeconds])
	assert.Equal(t, "75", events[0].Metadata[usage.MetaOverageSeconds])
	assert.Equal(t, "expired", events[0].Metadata[usage.MetaTrialState])
	require.NotNil(t, events[0].AgentID)
	assert.Equal(t, "agent-1", *events[0].AgentID)
}

func TestTrialService_HugeSecondsRejected(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 100)
	ctx := context.Background()

	_, err := f.trials.RecordTrialUsage(ctx, "acct", math.MaxInt64)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = f.trials.CompleteTrialCall(ctx, "acct", "", math.MaxInt64)
	assert.ErrorIs(t, err, errors.ErrValidation)

	assert.Equal(t, int64(100), f.trialUsed(t, "acct"))
	assert.Empty(t, f.events.Events("acct"))
}

func TestTrialService_CompleteTrialCallNegative(t *testing.T) {
	f := newMeteringFixture(t)
	f.trialAccount(t, "acct", 300, 0)

	_, err := f.trials.CompleteTrialCall(context.Background(), "acct", "", -1)
	assert.ErrorIs(t, err, errors.ErrValidation)
}
