package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carewatch/internal/anomaly"
	"carewatch/internal/monitor"
	"carewatch/internal/types"
)

// lockTTL must outlive the longest task so a slow run is not duplicated by a
// retry of the same tick.
const lockTTL = 15 * time.Minute

const (
	jobStatusSuccess = "success"
	jobStatusFailed  = "failed"
)

// AlertChecker runs one condition evaluation pass.
type AlertChecker interface {
	EvaluateAll(ctx context.Context) (monitor.RunSummary, error)
}

// AnomalyAnalyzer runs one analysis pass.
type AnomalyAnalyzer interface {
	AnalyzeAndAlert(ctx context.Context) (anomaly.AnalysisSummary, error)
}

// JobLocker grants a lock to one worker until it expires.
type JobLocker interface {
	Acquire(ctx context.Context, lockID, workerID string, now time.Time, ttl time.Duration) (bool, error)
}

// JobHistorian records task executions.
type JobHistorian interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, jobErr error) error
}

// Runner routes a Payload to the matching task.
type Runner struct {
	Checker  AlertChecker
	Analyzer AnomalyAnalyzer
	Locks    JobLocker
	History  JobHistorian
	WorkerID string
	Clock    types.Clock
	Logger   *slog.Logger
}

// LockID returns the duplicate-delivery key for task at the minute of t.
func LockID(task TaskType, t time.Time) string {
	return fmt.Sprintf("%s:%s", task, t.UTC().Format("200601021504"))
}

// Run executes the task named by p. A lock held by another worker is not an
// error; the result is marked skipped. History bookkeeping failures are
// logged and never fail the task.
func (r *Runner) Run(ctx context.Context, p Payload) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := r.Clock
	if clock == nil {
		clock = types.RealClock{}
	}

	res := Result{Task: p.Task}
	if _, ok := Tasks[p.Task]; !ok {
		return res, fmt.Errorf("unknown task %q", p.Task)
	}

	now := clock.Now()
	ref := now
	if p.ReferenceTime != nil {
		ref = p.ReferenceTime.UTC()
	}
	logger = logger.With("task", string(p.Task), "worker_id", r.WorkerID, "manual", p.Manual)
	ctx = types.WithTriggerSource(ctx, triggerSource(p))

	if !p.Manual && r.Locks != nil {
		res.LockID = LockID(p.Task, ref)
		acquired, err := r.Locks.Acquire(ctx, res.LockID, r.WorkerID, now, lockTTL)
		if err != nil {
			logger.ErrorContext(ctx, "failed to acquire job lock", "lock_id", res.LockID, "error", err)
			return res, fmt.Errorf("acquiring job lock %s: %w", res.LockID, err)
		}
		if !acquired {
			logger.InfoContext(ctx, "job lock held by another worker, skipping", "lock_id", res.LockID)
			res.Skipped = true
			return res, nil
		}
	}

	var jobID int64
	if r.History != nil {
		id, err := r.History.Start(ctx, string(p.Task))
		if err != nil {
			logger.ErrorContext(ctx, "failed to start job history", "error", err)
		} else {
			jobID = id
		}
	}

	items, summary, runErr := r.dispatch(ctx, p.Task)
	res.Items, res.Summary = items, summary

	if jobID != 0 {
		status := jobStatusSuccess
		if runErr != nil {
			status = jobStatusFailed
		}
		if err := r.History.Finish(ctx, jobID, status, items, runErr); err != nil {
			logger.ErrorContext(ctx, "failed to finish job history", "job_id", jobID, "error", err)
		}
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "task failed", "error", runErr)
		return res, fmt.Errorf("task %s failed: %w", p.Task, runErr)
	}
	logger.InfoContext(ctx, "task complete", "items", items)
	return res, nil
}

func (r *Runner) dispatch(ctx context.Context, task TaskType) (int, any, error) {
	switch task {
	case TaskAlertCheck:
		if r.Checker == nil {
			return 0, nil, fmt.Errorf("alert checker not configured")
		}
		s, err := r.Checker.EvaluateAll(ctx)
		return len(s.Triggered), s, err
	case TaskAnomalyAnalysis:
		if r.Analyzer == nil {
			return 0, nil, fmt.Errorf("anomaly analyzer not configured")
		}
		s, err := r.Analyzer.AnalyzeAndAlert(ctx)
		return s.AlertsCreated, s, err
	default:
		return 0, nil, fmt.Errorf("unknown task %q", task)
	}
}

func triggerSource(p Payload) string {
	if p.Manual {
		return "manual"
	}
	return "schedule"
}
