package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerAddRejectsBadSpec(t *testing.T) {
	r := NewRunner(context.Background(), time.UTC)
	err := r.Add("every so often", "bad", func(context.Context) {})
	assert.Error(t, err)

	_, ok := r.Next("bad")
	assert.False(t, ok)
}

func TestRunnerAddRejectsDuplicate(t *testing.T) {
	r := NewRunner(context.Background(), time.UTC)
	require.NoError(t, r.Add("@daily", "prune", func(context.Context) {}))
	assert.Error(t, r.Add("@hourly", "prune", func(context.Context) {}))
}

func TestRunnerRunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(ctx, time.UTC)

	var runs atomic.Int32
	var sawCancel atomic.Bool
	require.NoError(t, r.Add("@every 1s", "tick", func(jobCtx context.Context) {
		if jobCtx.Err() != nil {
			sawCancel.Store(true)
		}
		runs.Add(1)
	}))

	next, ok := r.Next("tick")
	assert.True(t, ok)
	assert.True(t, next.IsZero(), "next time is unknown before start")

	// Cancelling the parent must not leak into job contexts.
	cancel()
	r.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))
	assert.False(t, sawCancel.Load())
}

func TestRunnerRecoversPanics(t *testing.T) {
	r := NewRunner(context.Background(), nil)

	var after atomic.Int32
	require.NoError(t, r.Add("@every 1s", "panicky", func(context.Context) {
		after.Add(1)
		panic("boom")
	}))
	r.Start()

	assert.Eventually(t, func() bool { return after.Load() >= 2 }, 4*time.Second, 20*time.Millisecond,
		"runner keeps scheduling after a panic")
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunnerStopTimeout(t *testing.T) {
	r := NewRunner(context.Background(), time.UTC)

	started := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	require.NoError(t, r.Add("@every 1s", "slow", func(context.Context) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-release
	}))
	r.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)
	close(release)
}
