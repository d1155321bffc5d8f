package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T) (*Scheduler, *JobStore) {
	t.Helper()
	db := setupTestDB(t)
	jobs := NewJobStore(db)
	lease := NewLeaseStore(db, time.Minute)
	return New(jobs, lease, time.Second, testLogger()), jobs
}

func seedJob(t *testing.T, jobs *JobStore, j ScheduledJob) {
	t.Helper()
	require.NoError(t, jobs.Seed([]ScheduledJob{j}))
}

func waitForRuns(t *testing.T, runs *atomic.Int64, want int64) {
	t.Helper()
	require.Eventually(t, func() bool { return runs.Load() == want },
		2*time.Second, 10*time.Millisecond, "expected %d runs", want)
}

// waitForResult waits until RecordResult has landed after a run.
func waitForResult(t *testing.T, jobs *JobStore, name string, check func(*ScheduledJob) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		j, err := jobs.Get(name)
		return err == nil && check(j)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobStoreSeedPreservesRunState(t *testing.T) {
	_, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true})

	lastRun := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	nextRun := lastRun.Add(24 * time.Hour)
	require.NoError(t, jobs.StampDispatch("reconcile", lastRun, nextRun))

	// Re-seed with a new schedule: config wins, run state survives.
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 4 * * *", Enabled: true})

	j, err := jobs.Get("reconcile")
	require.NoError(t, err)
	assert.Equal(t, "0 4 * * *", j.Schedule)
	require.NotNil(t, j.LastRun)
	assert.Equal(t, lastRun.Unix(), j.LastRun.Unix())
}

func TestTickDispatchesDueJob(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, jobs.SetNextRun("reconcile", past))

	var runs atomic.Int64
	s.Register("reconcile", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	now := time.Now()
	s.tickAt(context.Background(), now)
	waitForRuns(t, &runs, 1)

	j, err := jobs.Get("reconcile")
	require.NoError(t, err)
	require.NotNil(t, j.LastRun)
	require.NotNil(t, j.NextRun)
	assert.True(t, j.NextRun.After(*j.LastRun), "next run is stamped strictly after last run")
}

func TestTickInitializesWithoutFiring(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true})

	var runs atomic.Int64
	s.Register("reconcile", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.tickAt(context.Background(), time.Now())

	assert.Zero(t, runs.Load(), "first sight of a job only schedules it")
	j, err := jobs.Get("reconcile")
	require.NoError(t, err)
	require.NotNil(t, j.NextRun)
	assert.True(t, j.NextRun.After(time.Now().Add(-time.Second)))
}

func TestTickRunOnStartFiresOnce(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true, RunOnStart: true})

	var runs atomic.Int64
	s.Register("reconcile", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.tickAt(context.Background(), time.Now())
	waitForRuns(t, &runs, 1)

	// The next tick sees run state and a future next_run: no re-fire.
	s.tickAt(context.Background(), time.Now())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), runs.Load())
}

func TestTickNoDoubleFire(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true})
	require.NoError(t, jobs.SetNextRun("reconcile", time.Now().Add(-time.Minute)))

	release := make(chan struct{})
	var runs atomic.Int64
	s.Register("reconcile", func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	s.tickAt(ctx, time.Now())
	waitForRuns(t, &runs, 1)

	// Handler still running; even a tick that happens to see a stale due
	// time must not start a second run.
	s.tickAt(ctx, time.Now().Add(48*time.Hour))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), runs.Load())

	close(release)
	s.wg.Wait()
}

func TestTickFailingJobDoesNotStall(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "broken", Schedule: "0 3 * * *", Enabled: true})
	seedJob(t, jobs, ScheduledJob{Name: "healthy", Schedule: "0 3 * * *", Enabled: true})
	require.NoError(t, jobs.SetNextRun("broken", time.Now().Add(-time.Minute)))
	require.NoError(t, jobs.SetNextRun("healthy", time.Now().Add(-time.Minute)))

	var healthyRuns atomic.Int64
	s.Register("broken", func(ctx context.Context) error { return errors.New("boom") })
	s.Register("healthy", func(ctx context.Context) error {
		healthyRuns.Add(1)
		return nil
	})

	s.tickAt(context.Background(), time.Now())
	waitForRuns(t, &healthyRuns, 1)
	waitForResult(t, jobs, "broken", func(j *ScheduledJob) bool {
		return j.LastError != nil && j.ConsecutiveFailures == 1
	})

	j, err := jobs.Get("broken")
	require.NoError(t, err)
	assert.Contains(t, *j.LastError, "boom")
	require.NotNil(t, j.NextRun)
	assert.True(t, j.NextRun.After(time.Now()), "failed jobs are still rescheduled")
}

func TestTickPanickingJobRecordedAsFailure(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "panicky", Schedule: "0 3 * * *", Enabled: true})
	require.NoError(t, jobs.SetNextRun("panicky", time.Now().Add(-time.Minute)))

	s.Register("panicky", func(ctx context.Context) error { panic("oh no") })

	s.tickAt(context.Background(), time.Now())
	waitForResult(t, jobs, "panicky", func(j *ScheduledJob) bool {
		return j.LastError != nil
	})

	j, err := jobs.Get("panicky")
	require.NoError(t, err)
	assert.Contains(t, *j.LastError, "panicked")
}

func TestRepeatedFailuresDisableJob(t *testing.T) {
	_, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "flaky", Schedule: "0 3 * * *", Enabled: true})

	for i := 0; i < maxConsecutiveFailures; i++ {
		require.NoError(t, jobs.RecordResult("flaky", errors.New("boom")))
	}

	j, err := jobs.Get("flaky")
	require.NoError(t, err)
	assert.False(t, j.Enabled)
	assert.Equal(t, maxConsecutiveFailures, j.ConsecutiveFailures)

	// One success resets the streak.
	require.NoError(t, jobs.RecordResult("flaky", nil))
	j, err = jobs.Get("flaky")
	require.NoError(t, err)
	assert.Zero(t, j.ConsecutiveFailures)
	assert.Nil(t, j.LastError)
}

func TestTickDisabledJobInert(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{Name: "off", Schedule: "0 3 * * *", Enabled: false, RunOnStart: true})

	var runs atomic.Int64
	s.Register("off", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.tickAt(context.Background(), time.Now())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestTickSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	db := setupTestDB(t)
	jobs := NewJobStore(db)
	s := New(jobs, NewLeaseStore(db, time.Minute), time.Second, testLogger())

	other := NewLeaseStore(db, time.Minute)
	got, err := other.TryAcquire(leaseName)
	require.NoError(t, err)
	require.True(t, got)

	seedJob(t, jobs, ScheduledJob{Name: "reconcile", Schedule: "0 3 * * *", Enabled: true, RunOnStart: true})
	var runs atomic.Int64
	s.Register("reconcile", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.tickAt(context.Background(), time.Now())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runs.Load(), "another node is on duty")
}

func TestTickUnparseableScheduleUsesFallback(t *testing.T) {
	s, jobs := newTestScheduler(t)
	seedJob(t, jobs, ScheduledJob{
		Name: "odd", Schedule: "whenever", IntervalFallback: 30 * time.Minute, Enabled: true,
	})

	s.Register("odd", func(ctx context.Context) error { return nil })

	before := time.Now()
	s.tickAt(context.Background(), before)

	j, err := jobs.Get("odd")
	require.NoError(t, err)
	require.NotNil(t, j.NextRun)
	diff := j.NextRun.Sub(before)
	assert.InDelta(t, (30 * time.Minute).Seconds(), diff.Seconds(), 5)
}
