package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// EngagementService handles likes, comments, captions and bookmarks on videos.
// Every mutation is a field-level repository operation, so concurrent
// writers to one video never overwrite each other.
type EngagementService struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	cache     repository.Cache
	logger    zerolog.Logger
}

// NewEngagementService creates a new EngagementService. cache may be nil.
func NewEngagementService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	cache repository.Cache,
	logger zerolog.Logger,
) *EngagementService {
	return &EngagementService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		cache:     cache,
		logger:    logger.With().Str("service", "engagement").Logger(),
	}
}

// =============================================================================
// Likes
// =============================================================================

// ToggleLikeOutput describes the like state after a toggle.
type ToggleLikeOutput struct {
	Liked      bool
	LikesCount int
}

// ToggleLike flips the caller's like on a video.
func (s *EngagementService) ToggleLike(ctx context.Context, videoID, userID string) (*ToggleLikeOutput, error) {
	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	liked := !video.IsLikedBy(userID)
	if liked {
		err = s.videoRepo.AddLike(ctx, videoID, userID)
	} else {
		err = s.videoRepo.RemoveLike(ctx, videoID, userID)
	}
	if err != nil {
		return nil, s.mutationError(err, videoID, "like")
	}

	video, err = s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.logger, video.UserID)

	return &ToggleLikeOutput{Liked: video.IsLikedBy(userID), LikesCount: video.LikesCount()}, nil
}

// =============================================================================
// Comments
// =============================================================================

// AddCommentOutput carries the new comment and the video's full comment list.
type AddCommentOutput struct {
	Comment  *domain.Comment
	Comments []domain.Comment
}

// AddComment appends a comment by userID to a video.
func (s *EngagementService) AddComment(ctx context.Context, videoID, userID, text string) (*AddCommentOutput, error) {
	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load comment author")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	comment, err := domain.NewComment(author, text)
	if err != nil {
		return nil, err
	}

	if err := s.videoRepo.AppendComment(ctx, videoID, comment); err != nil {
		return nil, s.mutationError(err, videoID, "comment")
	}

	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.logger, video.UserID)

	s.logger.Debug().
		Str("video_id", videoID).
		Str("comment_id", comment.ID).
		Msg("comment added")

	return &AddCommentOutput{Comment: comment, Comments: video.Comments}, nil
}

// =============================================================================
// Captions
// =============================================================================

// ReplaceCaptions replaces a video's caption track. Only the owner may do so.
func (s *EngagementService) ReplaceCaptions(ctx context.Context, videoID, userID string, cues []domain.CaptionCue) ([]domain.CaptionCue, error) {
	if err := domain.ValidateCaptions(cues); err != nil {
		return nil, err
	}

	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.IsOwnedBy(userID) {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, domain.ErrNotVideoOwner)
	}

	if cues == nil {
		cues = []domain.CaptionCue{}
	}
	if err := s.videoRepo.ReplaceCaptions(ctx, videoID, cues); err != nil {
		return nil, s.mutationError(err, videoID, "captions")
	}

	s.logger.Info().
		Str("video_id", videoID).
		Int("cues", len(cues)).
		Msg("captions replaced")

	return cues, nil
}

// =============================================================================
// Bookmarks
// =============================================================================

// ToggleBookmark flips the caller's bookmark on a video and reports the new state.
func (s *EngagementService) ToggleBookmark(ctx context.Context, videoID, userID string) (bool, error) {
	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return false, err
	}

	bookmarked := !video.IsBookmarkedBy(userID)
	if bookmarked {
		err = s.videoRepo.AddBookmark(ctx, videoID, userID)
	} else {
		err = s.videoRepo.RemoveBookmark(ctx, videoID, userID)
	}
	if err != nil {
		return false, s.mutationError(err, videoID, "bookmark")
	}
	return bookmarked, nil
}

func (s *EngagementService) getVideo(ctx context.Context, videoID string) (*domain.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, domain.ErrVideoNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("video_id", videoID).Msg("failed to get video")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return video, nil
}

func (s *EngagementService) mutationError(err error, videoID, field string) error {
	if errors.Is(err, domain.ErrVideoNotFound) {
		return err
	}
	s.logger.Error().Err(err).Str("video_id", videoID).Str("field", field).Msg("failed to update video")
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}
