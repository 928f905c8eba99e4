package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/repository"
)

// BookmarkService reads a user's bookmarks across the current per-video
// store and the legacy per-account list, and migrates the latter.
type BookmarkService struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	locker    lock.Locker
	lockOpts  lock.Options
	logger    zerolog.Logger
}

// NewBookmarkService creates a new BookmarkService. A nil locker runs the
// backfill without mutual exclusion.
func NewBookmarkService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	locker lock.Locker,
	lockOpts lock.Options,
	logger zerolog.Logger,
) *BookmarkService {
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &BookmarkService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		locker:    locker,
		lockOpts:  lockOpts,
		logger:    logger.With().Str("service", "bookmark").Logger(),
	}
}

// MergeBookmarks combines two bookmark lists by video id. Entries of current
// come first and win on duplicates; legacy entries not in current follow in
// their own order. Nil entries are dropped.
func MergeBookmarks(current, legacy []*domain.Video) []*domain.Video {
	seen := make(map[string]struct{}, len(current)+len(legacy))
	out := make([]*domain.Video, 0, len(current)+len(legacy))
	for _, list := range [][]*domain.Video{current, legacy} {
		for _, v := range list {
			if v == nil {
				continue
			}
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Bookmarked returns every video userID has bookmarked, newest first within
// each source, with no duplicates.
func (s *BookmarkService) Bookmarked(ctx context.Context, userID string) ([]*domain.Video, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	current, err := s.videoRepo.ListBookmarkedBy(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list bookmarks")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	var legacy []*domain.Video
	if len(user.LegacyBookmarks) > 0 {
		legacy, err = s.videoRepo.ListByIDs(ctx, user.LegacyBookmarks)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load legacy bookmarks")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	return MergeBookmarks(current, legacy), nil
}

// BackfillReport summarizes a legacy bookmark migration.
type BackfillReport struct {
	Users     int  `json:"users"`
	Bookmarks int  `json:"bookmarks"`
	Dangling  int  `json:"dangling"`
	DryRun    bool `json:"dryRun"`
}

// BackfillLegacyBookmarks copies every legacy per-account bookmark into the
// per-video bookmark sets and clears the legacy lists. Ids of deleted videos
// are counted as dangling and dropped. With dryRun nothing is written.
// Only one backfill runs at a time.
func (s *BookmarkService) BackfillLegacyBookmarks(ctx context.Context, dryRun bool) (*BackfillReport, error) {
	report := &BackfillReport{DryRun: dryRun}

	lk := lock.NewLock(s.locker, lock.Keys.BookmarkBackfill(), s.lockOpts)
	if err := lk.Acquire(ctx); err != nil {
		if errors.Is(err, repository.ErrLockNotAcquired) {
			return report, err
		}
		s.logger.Error().Err(err).Msg("failed to lock bookmark backfill")
		return report, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release bookmark backfill lock")
		}
	}()

	if err := s.backfill(ctx, lk, dryRun, report); err != nil {
		s.logger.Error().Err(err).Int("users", report.Users).Msg("bookmark backfill failed")
		if errors.Is(err, repository.ErrLockLost) {
			return report, err
		}
		return report, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int("users", report.Users).
		Int("bookmarks", report.Bookmarks).
		Int("dangling", report.Dangling).
		Bool("dry_run", dryRun).
		Msg("bookmark backfill completed")

	return report, nil
}

// backfill migrates one user at a time, renewing the lease after each so a
// long run keeps the job exclusive. It stops as soon as the lease is lost.
func (s *BookmarkService) backfill(ctx context.Context, lk *lock.Lock, dryRun bool, report *BackfillReport) error {
	users, err := s.userRepo.ListWithLegacyBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users with legacy bookmarks: %w", err)
	}

	for _, user := range users {
		if err := s.backfillUser(ctx, user, dryRun, report); err != nil {
			return err
		}
		report.Users++

		if err := lk.Extend(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BookmarkService) backfillUser(ctx context.Context, user *domain.User, dryRun bool, report *BackfillReport) error {
	for _, videoID := range user.LegacyBookmarks {
		if dryRun {
			if _, err := s.videoRepo.GetByID(ctx, videoID); err != nil {
				if !errors.Is(err, domain.ErrVideoNotFound) {
					return fmt.Errorf("failed to check video %s: %w", videoID, err)
				}
				report.Dangling++
				continue
			}
			report.Bookmarks++
			continue
		}

		if err := s.videoRepo.AddBookmark(ctx, videoID, user.ID); err != nil {
			if !errors.Is(err, domain.ErrVideoNotFound) {
				return fmt.Errorf("failed to bookmark video %s for user %s: %w", videoID, user.ID, err)
			}
			s.logger.Debug().Str("user_id", user.ID).Str("video_id", videoID).Msg("dropping dangling bookmark")
			report.Dangling++
			continue
		}
		report.Bookmarks++
	}

	if dryRun {
		return nil
	}
	if err := s.userRepo.ClearLegacyBookmarks(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to clear legacy bookmarks of user %s: %w", user.ID, err)
	}
	return nil
}
