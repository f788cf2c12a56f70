// Package scheduler implements background job scheduling for the insight
// hub worker: pulling feature batches from the warehouse, re-scoring the
// population and scanning the cohort for anomalies.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next time the job should run after the given time.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// tickInterval is how often the scheduler checks for due jobs.
const tickInterval = time.Second

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.RWMutex

	logger *slog.Logger

	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	lastRuns map[string]*JobResult

	onJobComplete func(result JobResult)
}

// scheduledJob wraps a Job with scheduling information.
type scheduledJob struct {
	job       Job
	schedule  Schedule
	enabled   bool
	nextRun   time.Time
	running   bool
	runCount  int64
	failCount int64
}

// NewScheduler creates a new Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:   logger,
		jobs:     make(map[string]*scheduledJob),
		lastRuns: make(map[string]*JobResult),
	}
}

// Register adds a job with its schedule. Job names must be unique.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil || schedule == nil {
		return fmt.Errorf("scheduler: job and schedule are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("scheduler: job %q already registered", job.Name())
	}

	s.jobs[job.Name()] = &scheduledJob{
		job:      job,
		schedule: schedule,
		enabled:  true,
		nextRun:  schedule.Next(time.Now().UTC()),
	}

	s.logger.Info("job registered",
		"job", job.Name(),
		"schedule", schedule.String(),
	)
	return nil
}

// EnableJob re-enables a disabled job.
func (s *Scheduler) EnableJob(jobName string) error {
	return s.setEnabled(jobName, true)
}

// DisableJob stops a job from being scheduled without unregistering it.
func (s *Scheduler) DisableJob(jobName string) error {
	return s.setEnabled(jobName, false)
}

func (s *Scheduler) setEnabled(jobName string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[jobName]
	if !ok {
		return fmt.Errorf("scheduler: job %q not found", jobName)
	}
	sj.enabled = enabled
	if enabled {
		sj.nextRun = sj.schedule.Next(time.Now().UTC())
	}
	return nil
}

// OnJobComplete registers a hook invoked after every job run.
func (s *Scheduler) OnJobComplete(fn func(result JobResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJobComplete = fn
}

// Start begins executing scheduled jobs. Blocks until Stop is called or
// the parent context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", len(s.jobs))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case now := <-ticker.C:
			s.checkAndRunJobs(now.UTC())
		}
	}
}

// Stop cancels the run loop and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// checkAndRunJobs launches every due job.
func (s *Scheduler) checkAndRunJobs(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sj := range s.jobs {
		if !sj.enabled || sj.running || now.Before(sj.nextRun) {
			continue
		}

		sj.running = true
		sj.nextRun = sj.schedule.Next(now)

		s.wg.Add(1)
		go s.runJob(sj)
	}
}

// runJob executes a single job, recovering panics into failed results.
func (s *Scheduler) runJob(sj *scheduledJob) {
	defer s.wg.Done()

	result := JobResult{
		JobName:   sj.job.Name(),
		StartedAt: time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job panic: %v", r)
		}

		result.CompletedAt = time.Now().UTC()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
		result.Success = result.Error == nil

		s.mu.Lock()
		sj.running = false
		sj.runCount++
		if !result.Success {
			sj.failCount++
		}
		s.lastRuns[result.JobName] = &result
		hook := s.onJobComplete
		s.mu.Unlock()

		if result.Success {
			s.logger.Info("job completed",
				"job", result.JobName,
				"duration", result.Duration,
			)
		} else {
			s.logger.Error("job failed",
				"job", result.JobName,
				"duration", result.Duration,
				"error", result.Error,
			)
		}

		if hook != nil {
			hook(result)
		}
	}()

	result.Error = sj.job.Run(s.ctx)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	sj, ok := s.jobs[jobName]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("scheduler: job %q not found", jobName)
	}

	result := JobResult{
		JobName:   jobName,
		StartedAt: time.Now().UTC(),
	}
	result.Error = sj.job.Run(ctx)
	result.CompletedAt = time.Now().UTC()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	result.Success = result.Error == nil

	s.mu.Lock()
	s.lastRuns[jobName] = &result
	s.mu.Unlock()

	return &result, result.Error
}

// JobInfo describes a registered job for introspection endpoints.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	Enabled     bool       `json:"enabled"`
	NextRun     time.Time  `json:"next_run"`
	RunCount    int64      `json:"run_count"`
	FailCount   int64      `json:"fail_count"`
	LastRun     *JobResult `json:"-"`
}

// ListJobs returns information on every registered job.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.schedule.String(),
			Enabled:     sj.enabled,
			NextRun:     sj.nextRun,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastRun:     s.lastRuns[name],
		})
	}
	return infos
}
