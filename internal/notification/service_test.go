package notification

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	authdomain "github.com/aterreno/jobseeker-analytics/internal/auth/domain"
	runusecase "github.com/aterreno/jobseeker-analytics/internal/run/usecase"

	"cloud.google.com/go/pubsub"
)

type fakeUserRepo struct {
	user *authdomain.User
}

func (f *fakeUserRepo) Create(user *authdomain.User) error { return nil }
func (f *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	return f.user, nil
}
func (f *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	if f.user != nil && f.user.Email == email {
		return f.user, nil
	}
	return nil, nil
}
func (f *fakeUserRepo) Update(user *authdomain.User) error { return nil }
func (f *fakeUserRepo) SaveRefreshToken(token *authdomain.RefreshToken) error {
	return nil
}
func (f *fakeUserRepo) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return nil, nil
}
func (f *fakeUserRepo) DeleteRefreshToken(token string) error { return nil }

type fakeRunUsecase struct {
	starts int32
}

func (f *fakeRunUsecase) StartRun(ctx context.Context, userID string, since *time.Time) (string, error) {
	return "", nil
}
func (f *fakeRunUsecase) StartRunIfIdle(userID string) {
	atomic.AddInt32(&f.starts, 1)
}
func (f *fakeRunUsecase) GetStatus(userID string) (*runusecase.RunStatusView, error) {
	return nil, nil
}

func newTestService(runs *fakeRunUsecase) *Service {
	return &Service{
		userRepo: &fakeUserRepo{user: &authdomain.User{
			ID:    "user-1",
			Email: "user-1@example.com",
		}},
		runUsecase:    runs,
		topicName:     "gmail-notifications",
		subName:       "gmail-notifications-sub",
		lastHistoryID: make(map[string]uint64),
	}
}

func notificationMessage(t *testing.T, email string, historyID uint64) *pubsub.Message {
	t.Helper()

	data, err := json.Marshal(GmailNotification{EmailAddress: email, HistoryID: historyID})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return &pubsub.Message{Data: data}
}

func waitForStarts(t *testing.T, runs *fakeRunUsecase, want int32) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&runs.starts) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("starts = %d, want at least %d", atomic.LoadInt32(&runs.starts), want)
}

func TestDuplicateNotificationsAreSkipped(t *testing.T) {
	runs := &fakeRunUsecase{}
	s := newTestService(runs)

	s.handleMessage(notificationMessage(t, "user-1@example.com", 42))
	waitForStarts(t, runs, 1)

	// Redelivery of the same historyId and anything older are no-ops.
	s.handleMessage(notificationMessage(t, "user-1@example.com", 42))
	s.handleMessage(notificationMessage(t, "user-1@example.com", 41))
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&runs.starts); got != 1 {
		t.Errorf("starts = %d, want 1", got)
	}

	s.handleMessage(notificationMessage(t, "user-1@example.com", 43))
	waitForStarts(t, runs, 2)
}

func TestUnknownUserNotificationIgnored(t *testing.T) {
	runs := &fakeRunUsecase{}
	s := newTestService(runs)

	s.handleMessage(notificationMessage(t, "stranger@example.com", 7))
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&runs.starts); got != 0 {
		t.Errorf("starts = %d, want 0", got)
	}
}

func TestConcurrentNotificationDelivery(t *testing.T) {
	runs := &fakeRunUsecase{}
	s := newTestService(runs)

	// Receive runs the callback from many goroutines at once; the
	// dedup map has to survive that.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(historyID uint64) {
			defer wg.Done()
			s.handleMessage(notificationMessage(t, "user-1@example.com", historyID))
		}(uint64(i + 1))
	}
	wg.Wait()

	waitForStarts(t, runs, 1)
}
