package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/fundvault/internal/service"
)

type countingDistributor struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (d *countingDistributor) DistributeProfits(ctx context.Context) (service.DistributionResult, error) {
	d.calls.Add(1)
	if d.panic {
		panic("boom")
	}
	if _, ok := ctx.Deadline(); !ok {
		return service.DistributionResult{}, errors.New("no deadline")
	}
	return service.DistributionResult{Distributed: true, Message: "distributed $1.00 among 1 investors"}, d.err
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(&countingDistributor{}, zap.NewNop(), "not a cron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a cron")
}

func TestRunDistribution_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := &countingDistributor{}

	s, err := New(d, zap.New(core), "0 0 * * *")
	require.NoError(t, err)

	s.runDistribution()

	assert.Equal(t, int32(1), d.calls.Load())
	entries := logs.FilterMessage("scheduled profit distribution finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "distributed $1.00 among 1 investors", entries[0].ContextMap()["message"])
}

func TestRunDistribution_LogsError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := &countingDistributor{err: errors.New("db down")}

	s, err := New(d, zap.New(core), "@daily")
	require.NoError(t, err)

	s.runDistribution()

	assert.Equal(t, 1, logs.FilterMessage("scheduled profit distribution failed").Len())
}

func TestScheduler_RunsAndRecovers(t *testing.T) {
	d := &countingDistributor{panic: true}

	s, err := New(d, zap.NewNop(), "@every 1s")
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return d.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)

	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
