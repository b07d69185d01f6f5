package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gradbridge/presence-backend-go/internal/domain/auth"
	"github.com/gradbridge/presence-backend-go/internal/domain/user"
	"github.com/gradbridge/presence-backend-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type service struct {
	users user.Repository
	jwt   jwt.Service
}

func NewAuthService(users user.Repository, jwtService jwt.Service) auth.Service {
	return &service{
		users: users,
		jwt:   jwtService,
	}
}

// Login implements auth.Service. Lookup failure and password mismatch report
// the same error so the response does not reveal which accounts exist.
func (s *service) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.LoginResponse{}, auth.ErrInvalidCredentials
		}
		return auth.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return auth.LoginResponse{}, auth.ErrInvalidCredentials
	}

	if !u.IsActive {
		return auth.LoginResponse{}, auth.ErrAccountInactive
	}
	if !u.IsEmailVerified {
		return auth.LoginResponse{}, auth.ErrEmailNotVerified
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		slog.Error("failed to generate access token", "user_id", u.ID, "error", err)
		return auth.LoginResponse{}, err
	}

	return auth.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User: auth.UserView{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		},
	}, nil
}
