package tasks

import (
	"context"
	"errors"
	"testing"

	"calm_games/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrift struct {
	drift []domain.LedgerDrift
	err   error
	calls int
}

func (f *fakeDrift) LedgerDrift(context.Context) ([]domain.LedgerDrift, error) {
	f.calls++
	return f.drift, f.err
}

func TestLedgerAuditReportsDrift(t *testing.T) {
	src := &fakeDrift{drift: []domain.LedgerDrift{{UserID: 1, Balance: 25, LedgerSum: 20}}}
	task := NewLedgerAuditTask(src, "0 30 3 * * *")

	drift, err := task.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, int64(1), drift[0].UserID)
	assert.Equal(t, 1, src.calls)
}

func TestLedgerAuditPropagatesError(t *testing.T) {
	task := NewLedgerAuditTask(&fakeDrift{err: errors.New("db down")}, "0 30 3 * * *")
	_, err := task.Run(context.Background())
	assert.Error(t, err)
}

func TestLedgerAuditRejectsBadSchedule(t *testing.T) {
	task := NewLedgerAuditTask(&fakeDrift{}, "every night")
	assert.Error(t, task.Start())
	task.Stop()
}

func TestLedgerAuditStartStop(t *testing.T) {
	task := NewLedgerAuditTask(&fakeDrift{}, "0 30 3 * * *")
	require.NoError(t, task.Start())
	task.Stop()
}
