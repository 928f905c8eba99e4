package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// AuthService handles credential checks and session issuance.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	logger   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// LoginInput contains login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains a signed session.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Don't reveal whether the email exists.
			s.logger.Debug().Msg("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("failed to load user for login")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, input.Password)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is unreadable")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID).Msg("invalid password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return &LoginOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
