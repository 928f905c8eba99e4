package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/repository"
)

// SocialService manages the follow graph.
type SocialService struct {
	userRepo repository.UserRepository
	locker   lock.Locker
	lockOpts lock.Options
	cache    repository.Cache
	logger   zerolog.Logger
}

// NewSocialService creates a new SocialService. A nil locker disables
// per-pair serialization; cache may be nil.
func NewSocialService(
	userRepo repository.UserRepository,
	locker lock.Locker,
	lockOpts lock.Options,
	cache repository.Cache,
	logger zerolog.Logger,
) *SocialService {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &SocialService{
		userRepo: userRepo,
		locker:   locker,
		lockOpts: lockOpts,
		cache:    cache,
		logger:   logger.With().Str("service", "social").Logger(),
	}
}

// ToggleFollowOutput describes the follow edge after a toggle.
type ToggleFollowOutput struct {
	Following      bool
	FollowersCount int
	FollowingCount int
}

// ToggleFollow flips the edge actorID -> targetID. Both sides of the edge
// change together; concurrent toggles of the same pair are serialized.
func (s *SocialService) ToggleFollow(ctx context.Context, actorID, targetID string) (*ToggleFollowOutput, error) {
	if actorID == targetID {
		return nil, domain.ErrSelfFollow
	}

	var out *ToggleFollowOutput
	err := lock.WithLock(ctx, s.locker, lock.Keys.FollowPair(actorID, targetID), s.lockOpts, func(ctx context.Context) error {
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
			return err
		}

		follow := !actor.IsFollowing(targetID)
		if err := s.userRepo.SetFollow(ctx, actorID, targetID, follow); err != nil {
			return err
		}

		target, err := s.userRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		out = &ToggleFollowOutput{
			Following:      follow,
			FollowersCount: target.FollowersCount(),
			FollowingCount: target.FollowingCount(),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).
			Str("actor_id", actorID).
			Str("target_id", targetID).
			Msg("failed to toggle follow")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	invalidateStats(ctx, s.cache, s.logger, actorID, targetID)

	s.logger.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Bool("following", out.Following).
		Msg("follow toggled")

	return out, nil
}

// ListFollowers returns the profiles following userID, newest edge first.
func (s *SocialService) ListFollowers(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Profile, error) {
	users, err := s.userRepo.ListFollowers(ctx, userID, opts)
	if err != nil {
		return nil, s.listError(err, userID, "followers")
	}
	return profiles(users), nil
}

// ListFollowing returns the profiles userID follows, newest edge first.
func (s *SocialService) ListFollowing(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Profile, error) {
	users, err := s.userRepo.ListFollowing(ctx, userID, opts)
	if err != nil {
		return nil, s.listError(err, userID, "following")
	}
	return profiles(users), nil
}

func (s *SocialService) listError(err error, userID, which string) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("user_id", userID).Str("list", which).Msg("failed to list follow edges")
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

func profiles(users []*domain.User) []*domain.Profile {
	out := make([]*domain.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}
