package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// UserService handles account registration, profiles and stats.
type UserService struct {
	userRepo   repository.UserRepository
	videoRepo  repository.VideoRepository
	cache      repository.Cache
	bcryptCost int
	statsTTL   time.Duration
	logger     zerolog.Logger
}

// UserServiceConfig holds UserService tunables.
type UserServiceConfig struct {
	BcryptCost int
	StatsTTL   time.Duration
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	cache repository.Cache,
	cfg UserServiceConfig,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		videoRepo:  videoRepo,
		cache:      cache,
		bcryptCost: cfg.BcryptCost,
		statsTTL:   cfg.StatsTTL,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Registration
// =============================================================================

// RegisterInput contains the data needed to create a new account.
type RegisterInput struct {
	Email          string
	Password       string
	Username       string
	ProfilePicture string
}

// RegisterOutput contains the result of a registration.
type RegisterOutput struct {
	User    *domain.User
	Message string
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(input.Email)
	username := domain.NormalizeUsername(input.Username)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.NewDomainError(domain.ErrUserAlreadyExists, "email already exists", email)
	}

	exists, err = s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.NewDomainError(domain.ErrUserAlreadyExists, "username already exists", username)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(email, username, hash)
	user.ProfilePicture = strings.TrimSpace(input.ProfilePicture)

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return &RegisterOutput{User: user, Message: "User registered successfully"}, nil
}

// =============================================================================
// Profiles
// =============================================================================

// GetByID returns the full account record.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, id)
	}
	return user, nil
}

// GetProfile returns the public profile of a user.
func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// GetByUsername looks a user up by handle. Case and surrounding space are ignored.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, s.lookupError(err, username)
	}
	return user, nil
}

// UpdateProfileInput contains the profile fields to change. Nil fields are kept.
type UpdateProfileInput struct {
	UserID         string
	Username       *string
	ProfilePicture *string
	Bio            *string
}

// UpdateProfile changes the mutable profile fields of the caller.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		if err := domain.ValidateUsername(*input.Username); err != nil {
			return nil, err
		}
		username := domain.NormalizeUsername(*input.Username)
		if username != user.Username {
			exists, err := s.userRepo.ExistsByUsername(ctx, username)
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to check username existence")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			if exists {
				return nil, domain.NewDomainError(domain.ErrUserAlreadyExists, "username already exists", username)
			}
			user.Username = username
		}
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = strings.TrimSpace(*input.ProfilePicture)
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if err := domain.ValidateBio(bio); err != nil {
			return nil, err
		}
		user.Bio = bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("profile updated")
	return user, nil
}

// List returns accounts with pagination, newest first.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	result, err := s.userRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// =============================================================================
// Stats
// =============================================================================

// Stats computes the aggregate counters of a user's videos. Results are
// persisted on the account and cached until invalidated or expired.
func (s *UserService) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	key := repository.CacheKeys.UserStats(userID)

	if s.cache != nil {
		cached, err := repository.GetJSON[domain.UserStats](ctx, s.cache, key)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, repository.ErrCacheMiss):
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("stats cache read failed")
		}
	}

	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	videos, err := s.videoRepo.ListByUser(ctx, userID, repository.ListOptions{})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load videos for stats")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	stats := ComputeStats(videos)

	if err := s.userRepo.UpdateStats(ctx, userID, stats); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to persist stats")
	}
	if s.cache != nil {
		if err := repository.SetJSON(ctx, s.cache, key, stats, s.statsTTL); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("stats cache write failed")
		}
	}

	return &stats, nil
}

// InvalidateStats drops the cached stats of the given users.
func (s *UserService) InvalidateStats(ctx context.Context, userIDs ...string) {
	invalidateStats(ctx, s.cache, s.logger, userIDs...)
}

// ComputeStats aggregates posts, likes and comments over videos.
// Views are not tracked and stay zero.
func ComputeStats(videos []*domain.Video) domain.UserStats {
	stats := domain.UserStats{Posts: int64(len(videos))}
	for _, v := range videos {
		stats.Likes += int64(len(v.Likes))
		stats.Comments += int64(len(v.Comments))
	}
	return stats
}

func invalidateStats(ctx context.Context, cache repository.Cache, logger zerolog.Logger, userIDs ...string) {
	if cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = repository.CacheKeys.UserStats(id)
	}
	if err := cache.DeleteMulti(ctx, keys...); err != nil {
		logger.Warn().Err(err).Strs("user_ids", userIDs).Msg("stats cache invalidation failed")
	}
}

func (s *UserService) lookupError(err error, id string) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("user_id", id).Msg("failed to get user")
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
