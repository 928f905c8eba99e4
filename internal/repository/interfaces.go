// Package repository defines data access interfaces for Reelhub.
// These interfaces abstract store operations, allowing for different implementations
// (SQLite, PostgreSQL, MongoDB, in-memory for testing) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/reelhub/internal/domain"
)

// =============================================================================
// User Repository (Account Store)
// =============================================================================

// UserRepository defines the interface for account data access.
// Implementations return domain.ErrUserNotFound for missing users and
// domain.ErrUserAlreadyExists for duplicate username/email.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID, including follow edges.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by (lowercased) email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Update persists the mutable profile fields (username, profile picture, bio).
	Update(ctx context.Context, user *domain.User) error

	// UpdateStats persists the cached aggregate counters of a user.
	UpdateStats(ctx context.Context, id string, stats domain.UserStats) error

	// List returns users ordered by creation time, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ===========================================
	// Social graph
	// ===========================================

	// SetFollow adds (follow=true) or removes (follow=false) the edge
	// followerID -> followeeID. Both sides of the edge (the follower's
	// "following" and the followee's "followers") are written in one
	// transaction. Adding an existing edge or removing a missing one is a no-op.
	SetFollow(ctx context.Context, followerID, followeeID string, follow bool) error

	// ListFollowers returns the users following userID, newest edge first.
	ListFollowers(ctx context.Context, userID string, opts ListOptions) ([]*domain.User, error)

	// ListFollowing returns the users userID follows, newest edge first.
	ListFollowing(ctx context.Context, userID string, opts ListOptions) ([]*domain.User, error)

	// ===========================================
	// Legacy bookmarks
	// ===========================================

	// ListWithLegacyBookmarks returns every user that still carries a
	// non-empty legacy bookmark list.
	ListWithLegacyBookmarks(ctx context.Context) ([]*domain.User, error)

	// ClearLegacyBookmarks empties the legacy bookmark list of a user.
	ClearLegacyBookmarks(ctx context.Context, userID string) error
}

// =============================================================================
// Video Repository (Content Store)
// =============================================================================

// VideoRepository defines the interface for video data access.
// Set-valued fields are mutated with field-level operations so that
// concurrent writers to the same video never overwrite each other.
// Implementations return domain.ErrVideoNotFound for missing videos.
type VideoRepository interface {
	// Create creates a new video.
	Create(ctx context.Context, video *domain.Video) error

	// GetByID retrieves a video with its likes, comments, captions and bookmarks.
	GetByID(ctx context.Context, id string) (*domain.Video, error)

	// List returns all videos, newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.Video, error)

	// ListByUser returns the videos authored by userID, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*domain.Video, error)

	// ListByUsers returns the videos authored by any of userIDs, newest first.
	ListByUsers(ctx context.Context, userIDs []string, opts ListOptions) ([]*domain.Video, error)

	// ListByIDs returns the videos whose id is in ids, newest first.
	// Unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Video, error)

	// ListBookmarkedBy returns the videos whose bookmark set contains userID, newest first.
	ListBookmarkedBy(ctx context.Context, userID string) ([]*domain.Video, error)

	// ===========================================
	// Field-level mutations
	// ===========================================

	// AddLike adds userID to the likes set.
	AddLike(ctx context.Context, videoID, userID string) error

	// RemoveLike removes userID from the likes set.
	RemoveLike(ctx context.Context, videoID, userID string) error

	// AddBookmark adds userID to the bookmarks set.
	AddBookmark(ctx context.Context, videoID, userID string) error

	// RemoveBookmark removes userID from the bookmarks set.
	RemoveBookmark(ctx context.Context, videoID, userID string) error

	// AppendComment appends a comment to the end of the comment list.
	AppendComment(ctx context.Context, videoID string, comment *domain.Comment) error

	// ReplaceCaptions replaces the caption cue list in one step.
	ReplaceCaptions(ctx context.Context, videoID string, cues []domain.CaptionCue) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	// Zero means no limit.
	Limit int
}

// Unbounded reports whether the options request the whole set.
func (o ListOptions) Unbounded() bool {
	return o.Limit <= 0
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// Repositories holds all repository instances of one store backend.
type Repositories struct {
	User  UserRepository
	Video VideoRepository
}
