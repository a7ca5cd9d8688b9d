package repository

import (
	"time"

	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"
)

// UserEmailRepository defines the data access contract for persisted
// mail messages.
type UserEmailRepository interface {
	// Insert stores a message if it is not already present for the user.
	// Returns false when the (user, message) pair already exists.
	Insert(email *emaildomain.UserEmail) (bool, error)
	Exists(userID, messageID string) (bool, error)
	// SetClassification fills in extracted details. The classification is
	// written once; later calls for the same message are no-ops.
	SetClassification(userID, messageID, company, status, title string) error
	// LatestReceivedAt returns the newest received_at among the user's
	// stored messages, or the zero time when none exist.
	LatestReceivedAt(userID string) (time.Time, error)
	ListClassified(userID string) ([]*emaildomain.UserEmail, error)
	// Delete removes one row; gorm.ErrRecordNotFound when the user has no
	// such row.
	Delete(userID, id string) error
}
