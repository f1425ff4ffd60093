package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// countingJob runs every interval and optionally blocks until released
type countingJob struct {
	interval time.Duration
	runs     atomic.Int32
	started  chan struct{}
	release  chan struct{}
	ctxErr   atomic.Value
}

func newCountingJob(interval time.Duration) *countingJob {
	return &countingJob{interval: interval, started: make(chan struct{}, 100)}
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.started <- struct{}{}
	if j.release != nil {
		<-j.release
		if err := ctx.Err(); err != nil {
			j.ctxErr.Store(err)
		}
	}
	return nil
}

func (j *countingJob) GetNextRunTime() time.Time {
	if j.runs.Load() == 0 {
		return time.Now()
	}
	return time.Now().Add(j.interval)
}

func waitStarted(t *testing.T, j *countingJob) {
	t.Helper()
	select {
	case <-j.started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
}

func TestJobScheduler_FirstRunImmediateThenPeriodic(t *testing.T) {
	job := newCountingJob(20 * time.Millisecond)
	s := NewJobScheduler()
	s.Register("tick", job)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, job)
	waitStarted(t, job)
	s.Stop()

	if runs := job.runs.Load(); runs < 2 {
		t.Errorf("Expected at least 2 runs, got %d", runs)
	}

	after := job.runs.Load()
	time.Sleep(60 * time.Millisecond)
	if job.runs.Load() != after {
		t.Error("Job ran after Stop")
	}
}

func TestJobScheduler_StopWaitsForInFlightRun(t *testing.T) {
	job := newCountingJob(time.Hour)
	job.release = make(chan struct{})
	s := NewJobScheduler()
	s.Register("slow", job)
	s.Start()
	waitStarted(t, job)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(job.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}

	if err := job.ctxErr.Load(); err != nil {
		t.Errorf("In-flight run saw a cancelled context: %v", err)
	}
}

func TestJobScheduler_StartStopIdempotent(t *testing.T) {
	s := NewJobScheduler()
	s.Register("tick", newCountingJob(time.Hour))

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Errorf("second Start: %v", err)
	}
	if !s.Running() {
		t.Error("Expected running")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Expected stopped")
	}
	if err := s.Start(); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestJobScheduler_RunNowAndStatus(t *testing.T) {
	job := newCountingJob(time.Hour)
	s := NewJobScheduler()
	s.Register("manual", job)
	defer s.Stop()

	if err := s.RunNow("manual"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if job.runs.Load() != 1 {
		t.Errorf("Expected one run, got %d", job.runs.Load())
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("Expected error for unknown job")
	}

	status := s.GetStatus()
	if st, ok := status["manual"]; !ok || !st.Registered || st.Scheduled {
		t.Errorf("Unexpected status %+v", status)
	}
}
