package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	providerservice "lead_routing_backend/internal/providers/service"
	"lead_routing_backend/platform/logger"

	"github.com/stretchr/testify/assert"
)

type countingRescorer struct {
	calls  int32
	err    error
	cancel context.CancelFunc
}

func (r *countingRescorer) RecalculateAll(context.Context) (providerservice.SweepResult, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.cancel != nil {
		r.cancel()
	}
	return providerservice.SweepResult{Total: 3, Updated: 3}, r.err
}

func TestRescoreSweepRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rescorer := &countingRescorer{cancel: cancel}

	done := make(chan struct{})
	go func() {
		NewProviderRescoreSweep(rescorer, logger.Discard(), time.Hour).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop after cancellation")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&rescorer.calls))
}

func TestRescoreSweepToleratesFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rescorer := &countingRescorer{cancel: cancel, err: errors.New("db down")}

	NewProviderRescoreSweep(rescorer, logger.Discard(), 0).Run(ctx)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rescorer.calls))
}

func TestNilSweepIsNoop(t *testing.T) {
	var s *ProviderRescoreSweep
	s.Run(context.Background())
}
