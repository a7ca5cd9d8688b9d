package api

import (
	authUsecase "github.com/aterreno/jobseeker-analytics/internal/auth/usecase"
	emailDelivery "github.com/aterreno/jobseeker-analytics/internal/email/delivery"
	emailUsecasePkg "github.com/aterreno/jobseeker-analytics/internal/email/usecase"
	runDelivery "github.com/aterreno/jobseeker-analytics/internal/run/delivery"
	runUsecasePkg "github.com/aterreno/jobseeker-analytics/internal/run/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	emailHandler *emailDelivery.EmailHandler
	runHandler   *runDelivery.RunHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, emailUc emailUsecasePkg.EmailUsecase, runUc runUsecasePkg.RunUsecase) *Handler {
	return &Handler{
		authUsecase:  authUc,
		emailHandler: emailDelivery.NewEmailHandler(emailUc),
		runHandler:   runDelivery.NewRunHandler(runUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.emailHandler, h.runHandler)

	return r.Run(addr)
}
