package domain

import "time"

// UserEmail is one fetched message, keyed by the Gmail message id per user.
// The unique (user_id, message_id) index is what makes persistence idempotent
// under at-least-once re-delivery.
type UserEmail struct {
	ID        string `json:"id" gorm:"primaryKey"`
	UserID    string `json:"user_id" gorm:"uniqueIndex:idx_user_message;not null"`
	MessageID string `json:"message_id" gorm:"uniqueIndex:idx_user_message;not null"`

	Subject   string `json:"subject"`
	FromEmail string `json:"from_email"`

	// Classification fields; ApplicationStatus is empty until the classifier
	// has run and transitions exactly once to a terminal label.
	CompanyName       string `json:"company_name"`
	ApplicationStatus string `json:"application_status"`
	JobTitle          string `json:"job_title"`

	ReceivedAt time.Time `json:"received_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (UserEmail) TableName() string {
	return "user_emails"
}
