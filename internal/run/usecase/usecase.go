package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/aterreno/jobseeker-analytics/pkg/gmail"
)

// Sentinel errors the delivery layer maps onto HTTP status codes.
var (
	ErrAlreadyRunning = errors.New("a sync run is already in progress")
	ErrCooldown       = errors.New("a sync run finished recently")
	ErrRunNotFound    = errors.New("no sync run for user")
	ErrNoCredentials  = errors.New("user has no mailbox credentials")
)

// RunStatusView is the merged durable-plus-live view of a user's sync run.
type RunStatusView struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// MailProvider abstracts the mailbox listing and fetch operations the
// pipeline needs.
type MailProvider interface {
	ListMessagePage(ctx context.Context, creds gmail.Credentials, query, pageToken string) (*gmail.MessagePage, error)
	GetMessage(ctx context.Context, creds gmail.Credentials, id string) (*gmail.Message, error)
}

// RunUsecase defines the business logic contract for sync runs
type RunUsecase interface {
	// StartRun admits and dispatches a background sync run, returning the
	// job ID. A non-nil since overrides the stored checkpoint.
	StartRun(ctx context.Context, userID string, since *time.Time) (string, error)
	// StartRunIfIdle fires a run and swallows admission refusals. Used by
	// background triggers that have nobody to report a 409 to.
	StartRunIfIdle(userID string)
	GetStatus(userID string) (*RunStatusView, error)
}
