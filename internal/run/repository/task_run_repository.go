package repository

import (
	"errors"
	"time"

	rundomain "github.com/aterreno/jobseeker-analytics/internal/run/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// taskRunRepository implements TaskRunRepository interface
type taskRunRepository struct {
	db *gorm.DB
}

// NewTaskRunRepository creates a new instance of taskRunRepository
func NewTaskRunRepository(db *gorm.DB) TaskRunRepository {
	return &taskRunRepository{
		db: db,
	}
}

func (r *taskRunRepository) Get(userID string) (*rundomain.TaskRun, error) {
	var run rundomain.TaskRun
	err := r.db.Where("user_id = ?", userID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// StartRun upserts the user's run row back to a fresh started state.
// The single-row-per-user shape means a new run replaces the previous
// run's record entirely.
func (r *taskRunRepository) StartRun(userID string) (*rundomain.TaskRun, error) {
	now := time.Now()
	run := &rundomain.TaskRun{
		UserID:  userID,
		Status:  rundomain.RunStarted,
		Created: now,
		Updated: now,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":           string(rundomain.RunStarted),
			"total_emails":     0,
			"processed_emails": 0,
			"job_id":           "",
			"error_message":    "",
			"updated":          now,
		}),
	}).Create(run).Error
	if err != nil {
		return nil, err
	}

	return run, nil
}

func (r *taskRunRepository) SetJobID(userID, jobID string) error {
	return r.db.Model(&rundomain.TaskRun{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"job_id":  jobID,
			"updated": time.Now(),
		}).Error
}

// AddTotal grows the run's expected message count as listing pages arrive.
// Guarded on started status so a failed run's counters stay frozen.
func (r *taskRunRepository) AddTotal(userID string, n int) error {
	return r.db.Model(&rundomain.TaskRun{}).
		Where("user_id = ? AND status = ?", userID, rundomain.RunStarted).
		Updates(map[string]interface{}{
			"total_emails": gorm.Expr("total_emails + ?", n),
			"updated":      time.Now(),
		}).Error
}

func (r *taskRunRepository) IncrementProcessed(userID string) error {
	return r.db.Model(&rundomain.TaskRun{}).
		Where("user_id = ? AND status = ?", userID, rundomain.RunStarted).
		Updates(map[string]interface{}{
			"processed_emails": gorm.Expr("processed_emails + 1"),
			"updated":          time.Now(),
		}).Error
}

func (r *taskRunRepository) MarkFinished(userID string) error {
	return r.db.Model(&rundomain.TaskRun{}).
		Where("user_id = ? AND status = ?", userID, rundomain.RunStarted).
		Updates(map[string]interface{}{
			"status":  string(rundomain.RunFinished),
			"updated": time.Now(),
		}).Error
}

func (r *taskRunRepository) MarkFailed(userID, message string) error {
	return r.db.Model(&rundomain.TaskRun{}).
		Where("user_id = ? AND status = ?", userID, rundomain.RunStarted).
		Updates(map[string]interface{}{
			"status":        string(rundomain.RunFailed),
			"error_message": message,
			"updated":       time.Now(),
		}).Error
}
