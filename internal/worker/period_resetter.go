package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
)

// PeriodRenewer resets billing periods that have ended
type PeriodRenewer interface {
	ResetDuePeriods(ctx context.Context) (int, error)
}

// PeriodResetter runs the billing period sweep on a cron schedule
type PeriodResetter struct {
	renewer  PeriodRenewer
	schedule string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewPeriodResetter creates a resetter. schedule accepts standard cron
// expressions and descriptors such as "@every 1h".
func NewPeriodResetter(renewer PeriodRenewer, schedule string, log *logger.Logger) (*PeriodResetter, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid period reset schedule %q: %w", schedule, err)
	}
	return &PeriodResetter{
		renewer:  renewer,
		schedule: schedule,
		timeout:  5 * time.Minute,
		logger:   log,
	}, nil
}

// Start sweeps once, then on every tick until ctx is cancelled
func (p *PeriodResetter) Start(ctx context.Context) {
	p.logger.With("schedule", p.schedule).Info("Starting period reset worker")

	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLogger{p.logger}),
		cron.SkipIfStillRunning(cronLogger{p.logger}),
	))
	if _, err := scheduler.AddFunc(p.schedule, func() { p.RunOnce(ctx) }); err != nil {
		p.logger.ErrorWithErr(err, "Failed to schedule period reset")
		return
	}

	p.RunOnce(ctx)
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	p.logger.Info("Period reset worker stopped")
}

// RunOnce performs a single sweep and returns how many accounts were reset
func (p *PeriodResetter) RunOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	n, err := p.renewer.ResetDuePeriods(ctx)
	if err != nil {
		p.logger.ErrorWithErr(err, "Billing period sweep failed")
		return n
	}

	p.logger.WithFields(map[string]interface{}{
		"accounts": n,
		"duration": time.Since(start).String(),
	}).Debug("Billing period sweep completed")
	return n
}

// cronLogger adapts the service logger to cron's logging interface
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(kvFields(keysAndValues)).ErrorWithErr(err, msg)
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
