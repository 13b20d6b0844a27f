// Package scheduler multiplexes the scheduled CareWatch tasks behind a
// single entry point shared by the Lambda function and the job-runner CLI.
//
// An EventBridge rule invokes the checker with a Payload naming the task.
// Each scheduled invocation takes a per-task, per-minute lock so a tick
// delivered twice runs once; manual invocations skip the lock.
package scheduler

import "time"

// TaskType names a scheduled task.
type TaskType string

const (
	TaskAlertCheck      TaskType = "alert_check"
	TaskAnomalyAnalysis TaskType = "anomaly_analysis"
)

// Tasks lists every task with a short description for CLI help.
var Tasks = map[TaskType]string{
	TaskAlertCheck:      "Evaluate enabled alert conditions and notify contacts",
	TaskAnomalyAnalysis: "Run behavioural anomaly analysis and create alerts",
}

// Payload is the JSON event sent by EventBridge or built by the CLI.
//
//	{"task": "alert_check", "reference_time": "2026-03-14T09:30:00Z", "manual": false}
type Payload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides the lock key minute. It does not change the
	// clock used by the tasks themselves.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	// Manual bypasses the duplicate-delivery lock.
	Manual bool `json:"manual,omitempty"`
}

// Result summarises one invocation.
type Result struct {
	Task    TaskType `json:"task"`
	Skipped bool     `json:"skipped,omitempty"`
	LockID  string   `json:"lock_id,omitempty"`
	Items   int      `json:"items"`
	Summary any      `json:"summary,omitempty"`
}
