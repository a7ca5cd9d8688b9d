package delivery

import (
	"errors"
	"net/http"

	"github.com/aterreno/jobseeker-analytics/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

// EmailHandler handles email HTTP requests
type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
	}
}

// GetEmails returns the user's classified job-application emails
// GET /api/emails
func (h *EmailHandler) GetEmails(c *gin.Context) {
	userID := c.GetString("userID")

	emails, err := h.emailUsecase.GetEmails(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"emails": emails,
		"total":  len(emails),
	})
}

// DeleteEmail removes one stored email
// DELETE /api/emails/:id
func (h *EmailHandler) DeleteEmail(c *gin.Context) {
	userID := c.GetString("userID")
	emailID := c.Param("id")

	if err := h.emailUsecase.DeleteEmail(userID, emailID); err != nil {
		if errors.Is(err, usecase.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email deleted"})
}
