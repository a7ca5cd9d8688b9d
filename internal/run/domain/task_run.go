package domain

import "time"

// RunStatus represents the lifecycle state of a processing run
type RunStatus string

const (
	RunStarted  RunStatus = "started"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// TaskRun tracks one email ingestion/classification run per user.
// There is at most one row per user; starting a new run overwrites the
// previous one once it is no longer live.
type TaskRun struct {
	UserID          string    `json:"user_id" gorm:"primaryKey"`
	Status          RunStatus `json:"status" gorm:"not null"`
	TotalEmails     int       `json:"total_emails" gorm:"default:0"`
	ProcessedEmails int       `json:"processed_emails" gorm:"default:0"`
	JobID           string    `json:"job_id,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
}

func (TaskRun) TableName() string {
	return "processing_task_runs"
}

// IsTerminal reports whether the run has reached a final state.
func (r *TaskRun) IsTerminal() bool {
	return r.Status == RunFinished || r.Status == RunFailed
}
