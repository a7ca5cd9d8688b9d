package api

import (
	"net/http"

	"github.com/aterreno/jobseeker-analytics/internal/auth/delivery"
	authUsecase "github.com/aterreno/jobseeker-analytics/internal/auth/usecase"
	emailDelivery "github.com/aterreno/jobseeker-analytics/internal/email/delivery"
	runDelivery "github.com/aterreno/jobseeker-analytics/internal/run/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, emailHandler *emailDelivery.EmailHandler, runHandler *runDelivery.RunHandler) {
	authHandler := delivery.NewAuthHandler(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUsecase))
		{
			emails.POST("/fetch", runHandler.StartFetch)
			emails.GET("/processing", runHandler.GetProcessing)
			emails.GET("", emailHandler.GetEmails)
			emails.DELETE("/:id", emailHandler.DeleteEmail)
		}
	}
}
