package repository

import (
	"testing"

	rundomain "github.com/aterreno/jobseeker-analytics/internal/run/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&rundomain.TaskRun{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func TestGetMissingRun(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	run, err := repo.Get("nobody")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil for unknown user, got %+v", run)
	}
}

func TestStartRunCreatesRow(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	run, err := repo.StartRun("user-1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != rundomain.RunStarted {
		t.Errorf("status = %s, want started", run.Status)
	}

	stored, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored == nil || stored.Status != rundomain.RunStarted {
		t.Fatalf("stored run = %+v, want started", stored)
	}
}

func TestStartRunResetsPreviousRun(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	if _, err := repo.StartRun("user-1"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := repo.SetJobID("user-1", "job-a"); err != nil {
		t.Fatalf("SetJobID failed: %v", err)
	}
	if err := repo.AddTotal("user-1", 10); err != nil {
		t.Fatalf("AddTotal failed: %v", err)
	}
	if err := repo.IncrementProcessed("user-1"); err != nil {
		t.Fatalf("IncrementProcessed failed: %v", err)
	}
	if err := repo.MarkFailed("user-1", "mailbox unavailable"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	if _, err := repo.StartRun("user-1"); err != nil {
		t.Fatalf("second StartRun failed: %v", err)
	}

	run, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != rundomain.RunStarted {
		t.Errorf("status = %s, want started", run.Status)
	}
	if run.TotalEmails != 0 || run.ProcessedEmails != 0 {
		t.Errorf("counters not reset: total=%d processed=%d", run.TotalEmails, run.ProcessedEmails)
	}
	if run.JobID != "" || run.ErrorMessage != "" {
		t.Errorf("job/error not reset: job=%q err=%q", run.JobID, run.ErrorMessage)
	}
}

func TestCountersAccumulate(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	if _, err := repo.StartRun("user-1"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if err := repo.AddTotal("user-1", 500); err != nil {
		t.Fatalf("AddTotal failed: %v", err)
	}
	if err := repo.AddTotal("user-1", 42); err != nil {
		t.Fatalf("AddTotal failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.IncrementProcessed("user-1"); err != nil {
			t.Fatalf("IncrementProcessed failed: %v", err)
		}
	}

	run, _ := repo.Get("user-1")
	if run.TotalEmails != 542 {
		t.Errorf("total = %d, want 542", run.TotalEmails)
	}
	if run.ProcessedEmails != 3 {
		t.Errorf("processed = %d, want 3", run.ProcessedEmails)
	}
}

func TestTerminalRunFreezesCounters(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	if _, err := repo.StartRun("user-1"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := repo.AddTotal("user-1", 5); err != nil {
		t.Fatalf("AddTotal failed: %v", err)
	}
	if err := repo.MarkFailed("user-1", "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	// Late writes from a stale worker must not touch a terminal run.
	if err := repo.IncrementProcessed("user-1"); err != nil {
		t.Fatalf("IncrementProcessed failed: %v", err)
	}
	if err := repo.AddTotal("user-1", 100); err != nil {
		t.Fatalf("AddTotal failed: %v", err)
	}
	if err := repo.MarkFinished("user-1"); err != nil {
		t.Fatalf("MarkFinished failed: %v", err)
	}

	run, _ := repo.Get("user-1")
	if run.Status != rundomain.RunFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if run.TotalEmails != 5 || run.ProcessedEmails != 0 {
		t.Errorf("counters changed after failure: total=%d processed=%d", run.TotalEmails, run.ProcessedEmails)
	}
	if run.ErrorMessage != "boom" {
		t.Errorf("error message = %q, want boom", run.ErrorMessage)
	}
}

func TestMarkFinished(t *testing.T) {
	repo := NewTaskRunRepository(setupTestDB(t))

	if _, err := repo.StartRun("user-1"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := repo.MarkFinished("user-1"); err != nil {
		t.Fatalf("MarkFinished failed: %v", err)
	}

	run, _ := repo.Get("user-1")
	if run.Status != rundomain.RunFinished {
		t.Errorf("status = %s, want finished", run.Status)
	}
	if !run.IsTerminal() {
		t.Error("finished run should be terminal")
	}
}
