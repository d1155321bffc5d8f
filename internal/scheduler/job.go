// Package scheduler runs registered jobs on cron schedules, with run state
// persisted so restarts resume cleanly and an advisory lease so only one
// node dispatches when several share a database.
package scheduler

import (
	"database/sql"
	"fmt"
	"time"
)

// ScheduledJob is one named job and its persisted run state.
type ScheduledJob struct {
	Name                string
	Schedule            string        // five-field cron expression
	IntervalFallback    time.Duration // used when Schedule cannot be parsed
	Enabled             bool
	RunOnStart          bool // fire once immediately if the job has never run
	LastRun             *time.Time
	NextRun             *time.Time
	LastError           *string
	ConsecutiveFailures int
}

// JobStore persists scheduled job state.
type JobStore struct {
	db *sql.DB
}

// NewJobStore creates a job store.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// Seed upserts job definitions. Schedule, fallback, and flags come from
// configuration and win on restart; run state (last/next run, failures) is
// preserved.
func (s *JobStore) Seed(jobs []ScheduledJob) error {
	for _, j := range jobs {
		if _, err := s.db.Exec(`
			INSERT INTO scheduled_jobs (name, schedule, interval_fallback_seconds, enabled, run_on_start)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				schedule = excluded.schedule,
				interval_fallback_seconds = excluded.interval_fallback_seconds,
				enabled = excluded.enabled,
				run_on_start = excluded.run_on_start`,
			j.Name, j.Schedule, int64(j.IntervalFallback.Seconds()), j.Enabled, j.RunOnStart,
		); err != nil {
			return fmt.Errorf("seed job %s: %w", j.Name, err)
		}
	}
	return nil
}

// List returns all jobs ordered by name.
func (s *JobStore) List() ([]ScheduledJob, error) {
	rows, err := s.db.Query(`
		SELECT name, schedule, interval_fallback_seconds, enabled, run_on_start,
		       last_run, next_run, last_error, consecutive_failures
		FROM scheduled_jobs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []ScheduledJob
	for rows.Next() {
		var j ScheduledJob
		var fallbackSecs int64
		if err := rows.Scan(&j.Name, &j.Schedule, &fallbackSecs, &j.Enabled, &j.RunOnStart,
			&j.LastRun, &j.NextRun, &j.LastError, &j.ConsecutiveFailures); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.IntervalFallback = time.Duration(fallbackSecs) * time.Second
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Get returns one job by name.
func (s *JobStore) Get(name string) (*ScheduledJob, error) {
	var j ScheduledJob
	var fallbackSecs int64
	err := s.db.QueryRow(`
		SELECT name, schedule, interval_fallback_seconds, enabled, run_on_start,
		       last_run, next_run, last_error, consecutive_failures
		FROM scheduled_jobs WHERE name = ?`, name,
	).Scan(&j.Name, &j.Schedule, &fallbackSecs, &j.Enabled, &j.RunOnStart,
		&j.LastRun, &j.NextRun, &j.LastError, &j.ConsecutiveFailures)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s: %w", name, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", name, err)
	}
	j.IntervalFallback = time.Duration(fallbackSecs) * time.Second
	return &j, nil
}

// StampDispatch records that the job was handed to its handler: last run is
// now, next run is already computed. Stamping happens before the handler
// runs so a slow or wedged handler cannot cause a double fire.
func (s *JobStore) StampDispatch(name string, lastRun, nextRun time.Time) error {
	if _, err := s.db.Exec(`
		UPDATE scheduled_jobs SET last_run = ?, next_run = ? WHERE name = ?`,
		lastRun, nextRun, name,
	); err != nil {
		return fmt.Errorf("stamp job %s: %w", name, err)
	}
	return nil
}

// SetNextRun updates only the next fire time.
func (s *JobStore) SetNextRun(name string, nextRun time.Time) error {
	if _, err := s.db.Exec(`
		UPDATE scheduled_jobs SET next_run = ? WHERE name = ?`,
		nextRun, name,
	); err != nil {
		return fmt.Errorf("set next run for job %s: %w", name, err)
	}
	return nil
}

// RecordResult stores a run's outcome. Failures accumulate; a success
// resets the streak. Jobs that fail maxConsecutiveFailures times in a row
// are disabled until re-seeded or re-enabled by hand.
func (s *JobStore) RecordResult(name string, runErr error) error {
	if runErr == nil {
		if _, err := s.db.Exec(`
			UPDATE scheduled_jobs SET last_error = NULL, consecutive_failures = 0 WHERE name = ?`,
			name,
		); err != nil {
			return fmt.Errorf("record result for job %s: %w", name, err)
		}
		return nil
	}

	msg := runErr.Error()
	if _, err := s.db.Exec(`
		UPDATE scheduled_jobs SET
			last_error = ?,
			consecutive_failures = consecutive_failures + 1,
			enabled = CASE WHEN consecutive_failures + 1 >= ? THEN 0 ELSE enabled END
		WHERE name = ?`,
		msg, maxConsecutiveFailures, name,
	); err != nil {
		return fmt.Errorf("record result for job %s: %w", name, err)
	}
	return nil
}
