package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "github.com/aterreno/jobseeker-analytics/internal/auth/repository"
	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"
	emailrepo "github.com/aterreno/jobseeker-analytics/internal/email/repository"
	rundomain "github.com/aterreno/jobseeker-analytics/internal/run/domain"
	runrepo "github.com/aterreno/jobseeker-analytics/internal/run/repository"
	"github.com/aterreno/jobseeker-analytics/pkg/ai"
	"github.com/aterreno/jobseeker-analytics/pkg/config"
	"github.com/aterreno/jobseeker-analytics/pkg/gmail"
	"github.com/aterreno/jobseeker-analytics/pkg/jobs"

	"golang.org/x/oauth2"
)

// runUsecase implements RunUsecase interface
type runUsecase struct {
	runRepo    runrepo.TaskRunRepository
	emailRepo  emailrepo.UserEmailRepository
	userRepo   authrepo.UserRepository
	mail       MailProvider
	classifier ai.ClassifierService
	runner     *jobs.Runner
	config     *config.Config

	// userLocks serializes admission per user so two concurrent StartRun
	// calls cannot both pass the liveness check.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewRunUsecase creates a new instance of runUsecase
func NewRunUsecase(
	runRepo runrepo.TaskRunRepository,
	emailRepo emailrepo.UserEmailRepository,
	userRepo authrepo.UserRepository,
	mail MailProvider,
	classifier ai.ClassifierService,
	runner *jobs.Runner,
	cfg *config.Config,
) RunUsecase {
	return &runUsecase{
		runRepo:    runRepo,
		emailRepo:  emailRepo,
		userRepo:   userRepo,
		mail:       mail,
		classifier: classifier,
		runner:     runner,
		config:     cfg,
		userLocks:  make(map[string]*sync.Mutex),
	}
}

func (u *runUsecase) lockFor(userID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()

	l, ok := u.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.userLocks[userID] = l
	}
	return l
}

func (u *runUsecase) StartRun(ctx context.Context, userID string, since *time.Time) (string, error) {
	lock := u.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	run, err := u.runRepo.Get(userID)
	if err != nil {
		return "", err
	}

	if run != nil {
		switch run.Status {
		case rundomain.RunStarted:
			if u.isLive(run) {
				return "", ErrAlreadyRunning
			}
			// The row says started but no worker owns it. This happens
			// after a restart loses the in-process job table. Fail the
			// orphan so the new run starts from a clean slate.
			log.Printf("[RunUsecase] Superseding stale run for user %s (job %s)", userID, run.JobID)
			if err := u.runRepo.MarkFailed(userID, "run went stale and was superseded"); err != nil {
				return "", err
			}
		case rundomain.RunFinished:
			if time.Since(run.Updated) < u.config.RunCooldown {
				return "", ErrCooldown
			}
		}
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil || (user.AccessToken == "" && user.RefreshToken == "") {
		return "", ErrNoCredentials
	}

	if _, err := u.runRepo.StartRun(userID); err != nil {
		return "", err
	}

	var checkpoint *time.Time
	if since != nil {
		t := *since
		checkpoint = &t
	}

	jobID, err := u.runner.Dispatch(func(ctx context.Context, report func(current, total int)) error {
		return u.runPipeline(ctx, userID, checkpoint, report)
	})
	if err != nil {
		// Nothing will ever pick the row up, so fail it immediately.
		_ = u.runRepo.MarkFailed(userID, err.Error())
		return "", err
	}

	if err := u.runRepo.SetJobID(userID, jobID); err != nil {
		return "", err
	}

	log.Printf("[RunUsecase] Dispatched sync run %s for user %s", jobID, userID)
	return jobID, nil
}

func (u *runUsecase) StartRunIfIdle(userID string) {
	_, err := u.StartRun(context.Background(), userID, nil)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrCooldown) {
			return
		}
		log.Printf("[RunUsecase] Background sync for user %s not started: %v", userID, err)
	}
}

// isLive reports whether a started run still has a worker behind it.
// The runner is authoritative: a pending or running job is live no
// matter how old the row is, since its worker will eventually write to
// it. A handle the runner does not know means the owning process is
// gone and nothing can touch the row again.
func (u *runUsecase) isLive(run *rundomain.TaskRun) bool {
	return run.JobID != "" && u.runner.IsLive(run.JobID)
}

func (u *runUsecase) GetStatus(userID string) (*RunStatusView, error) {
	run, err := u.runRepo.Get(userID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	view := &RunStatusView{
		Status:    string(run.Status),
		Processed: run.ProcessedEmails,
		Total:     run.TotalEmails,
		Error:     run.ErrorMessage,
	}

	// Live progress can be ahead of the last durable write.
	if run.Status == rundomain.RunStarted && run.JobID != "" {
		if st, ok := u.runner.Poll(run.JobID); ok {
			if st.Current > view.Processed {
				view.Processed = st.Current
			}
			if st.Total > view.Total {
				view.Total = st.Total
			}
		}
	}

	return view, nil
}

// runPipeline executes one sync run: list message pages from the
// checkpoint forward, persist each new message, classify it, and keep the
// durable counters moving.
func (u *runUsecase) runPipeline(ctx context.Context, userID string, since *time.Time, report func(current, total int)) error {
	finish := func(err error) error {
		if err != nil {
			log.Printf("[RunUsecase] Run for user %s failed: %v", userID, err)
			_ = u.runRepo.MarkFailed(userID, err.Error())
			return err
		}
		return u.runRepo.MarkFinished(userID)
	}

	creds, err := u.credentialsFor(userID)
	if err != nil {
		return finish(err)
	}

	checkpoint, err := u.checkpointFor(userID, since)
	if err != nil {
		return finish(err)
	}

	query := gmail.BuildQuery(checkpoint, u.config.FetchLookbackDays)
	log.Printf("[RunUsecase] Syncing user %s with query %q", userID, query)

	processed := 0
	total := 0
	pageToken := ""

	for {
		var page *gmail.MessagePage
		err := u.withRetry(ctx, func() error {
			var listErr error
			page, listErr = u.mail.ListMessagePage(ctx, *creds, query, pageToken)
			return listErr
		})
		if err != nil {
			return finish(fmt.Errorf("listing messages: %w", err))
		}

		if len(page.IDs) > 0 {
			if err := u.runRepo.AddTotal(userID, len(page.IDs)); err != nil {
				return finish(err)
			}
			total += len(page.IDs)
			report(processed, total)
		}

		for _, id := range page.IDs {
			if err := u.processMessage(ctx, userID, *creds, id); err != nil {
				return finish(err)
			}
			if err := u.runRepo.IncrementProcessed(userID); err != nil {
				return finish(err)
			}
			processed++
			report(processed, total)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Printf("[RunUsecase] Run for user %s finished: %d/%d messages", userID, processed, total)
	return finish(nil)
}

// processMessage persists and classifies one message. Redelivered
// messages short-circuit on the existence check; classification failures
// degrade to an unknown label rather than failing the run.
func (u *runUsecase) processMessage(ctx context.Context, userID string, creds gmail.Credentials, messageID string) error {
	exists, err := u.emailRepo.Exists(userID, messageID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	var msg *gmail.Message
	err = u.withRetry(ctx, func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, u.config.FetchTimeout)
		defer cancel()
		var getErr error
		msg, getErr = u.mail.GetMessage(fetchCtx, creds, messageID)
		return getErr
	})
	if err != nil {
		return fmt.Errorf("fetching message %s: %w", messageID, err)
	}

	inserted, err := u.emailRepo.Insert(&emaildomain.UserEmail{
		UserID:     userID,
		MessageID:  msg.ID,
		Subject:    msg.Subject,
		FromEmail:  msg.From,
		ReceivedAt: msg.ReceivedAt,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	c := u.classify(ctx, msg)
	return u.emailRepo.SetClassification(userID, msg.ID, c.CompanyName, c.ApplicationStatus, c.JobTitle)
}

// classify never fails the run; an unusable model response is stored as
// an unknown classification so the message is not refetched next run.
func (u *runUsecase) classify(ctx context.Context, msg *gmail.Message) *ai.Classification {
	classifyCtx, cancel := context.WithTimeout(ctx, u.config.ClassifyTimeout)
	defer cancel()

	c, err := u.classifier.ClassifyEmail(classifyCtx, msg.Subject, msg.Body)
	if err != nil {
		log.Printf("[RunUsecase] Classification failed for message %s: %v", msg.ID, err)
		return &ai.Classification{
			CompanyName:       ai.StatusUnknown,
			ApplicationStatus: ai.StatusUnknown,
			JobTitle:          ai.StatusUnknown,
		}
	}
	return c
}

// checkpointFor resolves the sync lower bound. An explicit since wins,
// otherwise the newest stored message; a zero time means first run and
// BuildQuery falls back to the configured lookback window.
func (u *runUsecase) checkpointFor(userID string, since *time.Time) (time.Time, error) {
	if since != nil {
		return *since, nil
	}
	return u.emailRepo.LatestReceivedAt(userID)
}

// credentialsFor loads the user's OAuth tokens and wires the refresh
// callback so new access tokens survive restarts.
func (u *runUsecase) credentialsFor(userID string) (*gmail.Credentials, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || (user.AccessToken == "" && user.RefreshToken == "") {
		return nil, ErrNoCredentials
	}

	return &gmail.Credentials{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		OnRefresh: func(token *oauth2.Token) error {
			fresh, err := u.userRepo.FindByID(userID)
			if err != nil {
				return err
			}
			if fresh == nil {
				return nil
			}
			fresh.AccessToken = token.AccessToken
			if token.RefreshToken != "" {
				fresh.RefreshToken = token.RefreshToken
			}
			fresh.TokenExpiry = token.Expiry
			return u.userRepo.Update(fresh)
		},
	}, nil
}

// withRetry retries rate-limited and transient mailbox calls with
// doubling backoff. Other errors return immediately.
func (u *runUsecase) withRetry(ctx context.Context, op func() error) error {
	backoff := u.config.RetryBackoff
	var err error

	for attempt := 0; attempt <= u.config.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[RunUsecase] Rate limited, retrying in %s (attempt %d/%d)", backoff, attempt, u.config.MaxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, gmail.ErrRateLimited) && !errors.Is(err, gmail.ErrTransient) {
			return err
		}
	}

	return err
}
