package usecase

import (
	"errors"

	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"
	"github.com/aterreno/jobseeker-analytics/internal/email/repository"

	"gorm.io/gorm"
)

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	emailRepo repository.UserEmailRepository
}

// NewEmailUsecase creates a new instance of emailUsecase
func NewEmailUsecase(emailRepo repository.UserEmailRepository) EmailUsecase {
	return &emailUsecase{
		emailRepo: emailRepo,
	}
}

// GetEmails returns the user's classified job-application emails, newest
// first. Messages the classifier marked unknown or unrelated are hidden.
func (u *emailUsecase) GetEmails(userID string) ([]*emaildomain.UserEmail, error) {
	return u.emailRepo.ListClassified(userID)
}

func (u *emailUsecase) DeleteEmail(userID, id string) error {
	err := u.emailRepo.Delete(userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEmailNotFound
	}
	return err
}
