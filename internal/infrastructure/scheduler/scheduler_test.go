package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingJob is a minimal Job for scheduler tests.
type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(nil)

	job := &countingJob{name: "sync_features"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	// Duplicate names are rejected.
	err := s.Register(&countingJob{name: "sync_features"}, NewIntervalSchedule(time.Minute))
	assert.Error(t, err)

	assert.Error(t, s.Register(nil, NewIntervalSchedule(time.Minute)))
	assert.Error(t, s.Register(job, nil))
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(nil)

	job := &countingJob{name: "scan_alerts"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "scan_alerts")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "scan_alerts", result.JobName)
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestScheduler_RunNow_UnknownJob(t *testing.T) {
	s := NewScheduler(nil)

	result, err := s.RunNow(context.Background(), "missing")
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestScheduler_RunNow_PropagatesJobError(t *testing.T) {
	s := NewScheduler(nil)

	job := &countingJob{name: "rescore_population", err: errors.New("store busy")}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "rescore_population")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, job.err, result.Error)
}

func TestScheduler_ListJobs(t *testing.T) {
	s := NewScheduler(nil)

	require.NoError(t, s.Register(&countingJob{name: "sync_features"}, NewIntervalSchedule(15*time.Minute)))
	require.NoError(t, s.Register(&countingJob{name: "scan_alerts"}, NewIntervalSchedule(5*time.Minute)))

	infos := s.ListJobs()
	require.Len(t, infos, 2)

	names := map[string]JobInfo{}
	for _, info := range infos {
		names[info.Name] = info
	}
	require.Contains(t, names, "sync_features")
	require.Contains(t, names, "scan_alerts")
	assert.Equal(t, "every 15m0s", names["sync_features"].Schedule)
	assert.True(t, names["sync_features"].Enabled)
	assert.False(t, names["sync_features"].NextRun.IsZero())
}

func TestScheduler_DisableJob(t *testing.T) {
	s := NewScheduler(nil)

	require.NoError(t, s.Register(&countingJob{name: "scan_alerts"}, NewIntervalSchedule(time.Minute)))
	require.NoError(t, s.DisableJob("scan_alerts"))

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.False(t, infos[0].Enabled)

	require.NoError(t, s.EnableJob("scan_alerts"))
	assert.True(t, s.ListJobs()[0].Enabled)

	assert.Error(t, s.DisableJob("missing"))
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(nil)

	job := &countingJob{name: "scan_alerts"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))

	var completed atomic.Int64
	s.OnJobComplete(func(result JobResult) {
		if result.Success {
			completed.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()

	// The ticker fires every second; give it time for at least one pass.
	require.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)

	s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.GreaterOrEqual(t, completed.Load(), int64(1))
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	s := NewScheduler(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.running
	}, time.Second, 10*time.Millisecond)

	assert.Error(t, s.Start(ctx))

	s.Stop()
	<-done
}

func TestIntervalSchedule(t *testing.T) {
	sched := NewIntervalSchedule(5 * time.Minute)

	base := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), sched.Next(base))
	assert.Equal(t, "every 5m0s", sched.String())
}
