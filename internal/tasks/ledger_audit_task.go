package tasks

import (
	"context"
	"fmt"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/metrics"

	"github.com/robfig/cron/v3"
)

// DriftSource lists wallets whose balance disagrees with their ledger
type DriftSource interface {
	LedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error)
}

// LedgerAuditTask compares every wallet with the sum of its ledger rows on
// a schedule. It only reports; fixing a drifted wallet is a manual job.
type LedgerAuditTask struct {
	source   DriftSource
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

func NewLedgerAuditTask(source DriftSource, schedule string) *LedgerAuditTask {
	return &LedgerAuditTask{
		source:   source,
		schedule: schedule,
		timeout:  5 * time.Minute,
	}
}

// Start schedules the audit. The schedule has a seconds field.
func (t *LedgerAuditTask) Start() error {
	t.cron = cron.New(cron.WithSeconds())

	if _, err := t.cron.AddFunc(t.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		_, _ = t.Run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule ledger audit %q: %w", t.schedule, err)
	}

	t.cron.Start()
	logger.Info("ledger audit scheduled", "schedule", t.schedule)
	return nil
}

// Run performs one audit and returns the drifted wallets
func (t *LedgerAuditTask) Run(ctx context.Context) ([]domain.LedgerDrift, error) {
	start := time.Now()
	drift, err := t.source.LedgerDrift(ctx)
	if err != nil {
		logger.Error("ledger audit failed", "error", err)
		return nil, err
	}

	metrics.LedgerDriftWallets.Set(float64(len(drift)))
	for _, d := range drift {
		logger.Error("wallet ledger drift",
			"user_id", d.UserID,
			"balance", d.Balance,
			"ledger_sum", d.LedgerSum,
			"diff", d.Balance-d.LedgerSum,
		)
	}
	logger.Info("ledger audit done", "drifted", len(drift), "took", time.Since(start).Round(time.Millisecond))
	return drift, nil
}

func (t *LedgerAuditTask) Stop() {
	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done()
		logger.Info("ledger audit stopped")
	}
}
