package main

import (
	"context"
	"log"
	"strings"

	api "github.com/aterreno/jobseeker-analytics/cmd/api"
	authdomain "github.com/aterreno/jobseeker-analytics/internal/auth/domain"
	authRepo "github.com/aterreno/jobseeker-analytics/internal/auth/repository"
	authUsecase "github.com/aterreno/jobseeker-analytics/internal/auth/usecase"
	emaildomain "github.com/aterreno/jobseeker-analytics/internal/email/domain"
	emailRepo "github.com/aterreno/jobseeker-analytics/internal/email/repository"
	emailUsecase "github.com/aterreno/jobseeker-analytics/internal/email/usecase"
	"github.com/aterreno/jobseeker-analytics/internal/notification"
	rundomain "github.com/aterreno/jobseeker-analytics/internal/run/domain"
	runRepo "github.com/aterreno/jobseeker-analytics/internal/run/repository"
	runUsecase "github.com/aterreno/jobseeker-analytics/internal/run/usecase"
	"github.com/aterreno/jobseeker-analytics/pkg/ai"
	"github.com/aterreno/jobseeker-analytics/pkg/config"
	"github.com/aterreno/jobseeker-analytics/pkg/database"
	"github.com/aterreno/jobseeker-analytics/pkg/gmail"
	"github.com/aterreno/jobseeker-analytics/pkg/jobs"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &rundomain.TaskRun{}, &emaildomain.UserEmail{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	taskRunRepo := runRepo.NewTaskRunRepository(db)
	userEmailRepo := emailRepo.NewUserEmailRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize AI classifier
	classifier, err := ai.NewClassifierService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI classifier:", err)
	}
	log.Printf("AI classifier initialized with provider: %s", cfg.AIProvider)

	// Initialize background job runner
	runner := jobs.NewRunner(cfg.WorkerCount, cfg.JobQueueSize, cfg.RunStaleAfter)
	runner.Start()
	defer runner.Stop()

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(userEmailRepo)
	runUsecaseInstance := runUsecase.NewRunUsecase(taskRunRepo, userEmailRepo, userRepo, gmailService, classifier, runner, cfg)

	// Kick off a mailbox sync when a Google sign-in stores fresh tokens
	authUsecaseInstance.SetSyncCallback(runUsecaseInstance.StartRunIfIdle)

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, runUsecaseInstance, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, emailUsecaseInstance, runUsecaseInstance)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
