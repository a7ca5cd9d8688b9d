package usecase

import (
	"errors"

	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"
)

// ErrEmailNotFound is returned when a delete targets a message the user
// does not have.
var ErrEmailNotFound = errors.New("email not found")

// EmailUsecase defines the business logic contract for reading stored
// job-application emails.
type EmailUsecase interface {
	GetEmails(userID string) ([]*emaildomain.UserEmail, error)
	DeleteEmail(userID, id string) error
}
