package models

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskInfo is the externally visible state of a queued background task.
type TaskInfo struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     TaskStatus  `json:"status"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Done reports whether the task reached a terminal state.
func (t TaskInfo) Done() bool {
	return t.Status == TaskSucceeded || t.Status == TaskFailed
}
