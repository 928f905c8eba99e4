package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// VideoService handles video publishing and lookup.
type VideoService struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	cache     repository.Cache
	logger    zerolog.Logger
}

// NewVideoService creates a new VideoService. cache may be nil.
func NewVideoService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	cache repository.Cache,
	logger zerolog.Logger,
) *VideoService {
	return &VideoService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		cache:     cache,
		logger:    logger.With().Str("service", "video").Logger(),
	}
}

// CreateVideoInput contains the data needed to publish a video.
type CreateVideoInput struct {
	UserID       string
	Caption      string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Captions     []domain.CaptionCue
}

// Create publishes a video owned by input.UserID.
func (s *VideoService) Create(ctx context.Context, input CreateVideoInput) (*domain.Video, error) {
	videoURL := strings.TrimSpace(input.VideoURL)
	if videoURL == "" {
		return nil, domain.ErrVideoURLRequired
	}

	caption := domain.ResolveCaption(input.Caption, input.Title, input.Description)
	if err := domain.ValidateCaption(caption); err != nil {
		return nil, err
	}
	if err := domain.ValidateCaptions(input.Captions); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", input.UserID).Msg("failed to load video owner")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	video := domain.NewVideo(owner, caption, videoURL, strings.TrimSpace(input.ThumbnailURL))
	if len(input.Captions) > 0 {
		video.Captions = input.Captions
	}

	if err := s.videoRepo.Create(ctx, video); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", owner.ID).Msg("failed to create video")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	invalidateStats(ctx, s.cache, s.logger, owner.ID)

	s.logger.Info().
		Str("video_id", video.ID).
		Str("user_id", owner.ID).
		Msg("video created")

	return video, nil
}

// Get returns a video by id.
func (s *VideoService) Get(ctx context.Context, id string) (*domain.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("video_id", id).Msg("failed to get video")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return video, nil
}
