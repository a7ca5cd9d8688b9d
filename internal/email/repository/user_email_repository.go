package repository

import (
	"time"

	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userEmailRepository implements UserEmailRepository interface
type userEmailRepository struct {
	db *gorm.DB
}

// NewUserEmailRepository creates a new instance of userEmailRepository
func NewUserEmailRepository(db *gorm.DB) UserEmailRepository {
	return &userEmailRepository{
		db: db,
	}
}

// Insert relies on the unique (user_id, message_id) index so redelivered
// messages are dropped at the database rather than filtered in memory.
func (r *userEmailRepository) Insert(email *emaildomain.UserEmail) (bool, error) {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(email)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *userEmailRepository) Exists(userID, messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&emaildomain.UserEmail{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userEmailRepository) SetClassification(userID, messageID, company, status, title string) error {
	return r.db.Model(&emaildomain.UserEmail{}).
		Where("user_id = ? AND message_id = ? AND application_status = ''", userID, messageID).
		Updates(map[string]interface{}{
			"company_name":       company,
			"application_status": status,
			"job_title":          title,
			"updated_at":         time.Now(),
		}).Error
}

func (r *userEmailRepository) LatestReceivedAt(userID string) (time.Time, error) {
	var email emaildomain.UserEmail
	err := r.db.Where("user_id = ?", userID).
		Order("received_at DESC").
		Limit(1).
		Find(&email).Error
	if err != nil {
		return time.Time{}, err
	}
	return email.ReceivedAt, nil
}

// ListClassified returns the user's messages that classified as genuine
// job-application traffic, newest first.
func (r *userEmailRepository) ListClassified(userID string) ([]*emaildomain.UserEmail, error) {
	var emails []*emaildomain.UserEmail
	err := r.db.Where("user_id = ? AND application_status NOT IN ?", userID,
		[]string{"", "unknown", "false_positive"}).
		Order("received_at DESC").
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *userEmailRepository) Delete(userID, id string) error {
	result := r.db.Where("user_id = ? AND id = ?", userID, id).
		Delete(&emaildomain.UserEmail{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
