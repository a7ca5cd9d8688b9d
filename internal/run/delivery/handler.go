package delivery

import (
	"errors"
	"net/http"
	"time"

	"github.com/aterreno/jobseeker-analytics/internal/run/usecase"

	"github.com/gin-gonic/gin"
)

// RunHandler handles sync run HTTP requests
type RunHandler struct {
	runUsecase usecase.RunUsecase
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(runUsecase usecase.RunUsecase) *RunHandler {
	return &RunHandler{
		runUsecase: runUsecase,
	}
}

// StartFetch kicks off a background mailbox sync for the authenticated user
// POST /api/emails/fetch?since=2025-06-01T00:00:00Z
func (h *RunHandler) StartFetch(c *gin.Context) {
	userID := c.GetString("userID")

	var since *time.Time
	if s := c.Query("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC 3339"})
			return
		}
		since = &parsed
	}

	jobID, err := h.runUsecase.StartRun(c.Request.Context(), userID, since)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAlreadyRunning):
			c.JSON(http.StatusAccepted, gin.H{"message": "a sync run is already in progress"})
		case errors.Is(err, usecase.ErrCooldown):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "a sync run finished recently, try again later"})
		case errors.Is(err, usecase.ErrNoCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no mailbox credentials, sign in with Google first"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_id": jobID})
}

// GetProcessing reports progress of the user's sync run
// GET /api/emails/processing
func (h *RunHandler) GetProcessing(c *gin.Context) {
	userID := c.GetString("userID")

	view, err := h.runUsecase.GetStatus(userID)
	if err != nil {
		if errors.Is(err, usecase.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sync run for user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}
