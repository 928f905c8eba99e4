package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// FeedService assembles chronological video feeds.
type FeedService struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	logger    zerolog.Logger
}

// NewFeedService creates a new FeedService.
func NewFeedService(userRepo repository.UserRepository, videoRepo repository.VideoRepository, logger zerolog.Logger) *FeedService {
	return &FeedService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		logger:    logger.With().Str("service", "feed").Logger(),
	}
}

// Global returns every video, newest first.
func (s *FeedService) Global(ctx context.Context, opts repository.ListOptions) ([]*domain.Video, error) {
	videos, err := s.videoRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list videos")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return videos, nil
}

// ByUser returns the videos authored by userID, newest first. An unknown
// user simply has no videos.
func (s *FeedService) ByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	videos, err := s.videoRepo.ListByUser(ctx, userID, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list user videos")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return videos, nil
}

// Following returns the videos of everyone userID follows, newest first.
func (s *FeedService) Following(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if len(user.Following) == 0 {
		return []*domain.Video{}, nil
	}

	videos, err := s.videoRepo.ListByUsers(ctx, user.Following, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list following feed")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return videos, nil
}
