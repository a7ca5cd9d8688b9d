package usecase

import (
	"context"

	authdomain "github.com/aterreno/jobseeker-analytics/internal/auth/domain"
	authdto "github.com/aterreno/jobseeker-analytics/internal/auth/dto"
)

// AuthUsecase defines the business logic contract for authentication
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(ctx context.Context, req *authdto.GoogleSignInRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)

	// SetSyncCallback registers a hook invoked after a Google sign-in
	// stores fresh mailbox credentials for a user.
	SetSyncCallback(cb func(userID string))
}
