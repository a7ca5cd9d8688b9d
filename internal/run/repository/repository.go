package repository

import (
	rundomain "github.com/aterreno/jobseeker-analytics/internal/run/domain"
)

// TaskRunRepository defines the data access contract for sync runs.
// Each user has at most one run row; starting a new run resets it.
type TaskRunRepository interface {
	Get(userID string) (*rundomain.TaskRun, error)
	StartRun(userID string) (*rundomain.TaskRun, error)
	SetJobID(userID, jobID string) error
	AddTotal(userID string, n int) error
	IncrementProcessed(userID string) error
	MarkFinished(userID string) error
	MarkFailed(userID, message string) error
}
