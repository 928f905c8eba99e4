package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// videoRepository implements repository.VideoRepository for SQLite.
type videoRepository struct {
	db *DB
}

// NewVideoRepository creates a new SQLite video repository.
func NewVideoRepository(db *DB) repository.VideoRepository {
	return &videoRepository{db: db}
}

const videoColumns = `id, caption, video_url, thumbnail_url, user_id, user_email, username, created_at, updated_at`

// Create creates a new video with its child rows.
func (r *videoRepository) Create(ctx context.Context, video *domain.Video) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO videos (` + videoColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			video.ID,
			video.Caption,
			video.VideoURL,
			video.ThumbnailURL,
			video.UserID,
			video.UserEmail,
			video.Username,
			formatTime(video.CreatedAt),
			formatTime(video.UpdatedAt),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to create video: %w", err)
		}

		now := formatTime(video.CreatedAt)
		for _, userID := range video.Likes {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO video_likes (video_id, user_id, created_at) VALUES (?, ?, ?)`,
				video.ID, userID, now); err != nil {
				return fmt.Errorf("failed to store like: %w", err)
			}
		}
		for _, userID := range video.Bookmarks {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO video_bookmarks (video_id, user_id, created_at) VALUES (?, ?, ?)`,
				video.ID, userID, now); err != nil {
				return fmt.Errorf("failed to store bookmark: %w", err)
			}
		}
		for i := range video.Comments {
			if err := insertComment(ctx, tx, video.ID, &video.Comments[i]); err != nil {
				return err
			}
		}
		return insertCaptions(ctx, tx, video.ID, video.Captions)
	})
}

// GetByID retrieves a video by ID.
func (r *videoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ?`

	video, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	if err := hydrateVideos(ctx, r.db.db, []*domain.Video{video}); err != nil {
		return nil, err
	}
	return video, nil
}

// List returns all videos, newest first.
func (r *videoRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Video, error) {
	limit, offset := limitOffset(opts)
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	videos, err := r.queryVideos(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// ListByUser returns the videos authored by userID, newest first.
func (r *videoRepository) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	limit, offset := limitOffset(opts)
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	videos, err := r.queryVideos(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos by user: %w", err)
	}
	return videos, nil
}

// ListByUsers returns the videos authored by any of userIDs, newest first.
func (r *videoRepository) ListByUsers(ctx context.Context, userIDs []string, opts repository.ListOptions) ([]*domain.Video, error) {
	if len(userIDs) == 0 {
		return []*domain.Video{}, nil
	}

	list, err := idList(userIDs)
	if err != nil {
		return nil, err
	}
	limit, offset := limitOffset(opts)
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id IN (` + idSet + `)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`
	videos, err := r.queryVideos(ctx, query, list, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos by users: %w", err)
	}
	return videos, nil
}

// ListByIDs returns the videos whose id is in ids, newest first.
func (r *videoRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Video, error) {
	if len(ids) == 0 {
		return []*domain.Video{}, nil
	}

	list, err := idList(ids)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE id IN (` + idSet + `)
		ORDER BY created_at DESC, rowid DESC
	`
	videos, err := r.queryVideos(ctx, query, list)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos by ids: %w", err)
	}
	return videos, nil
}

// ListBookmarkedBy returns the videos bookmarked by userID, newest first.
func (r *videoRepository) ListBookmarkedBy(ctx context.Context, userID string) ([]*domain.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE id IN (SELECT video_id FROM video_bookmarks WHERE user_id = ?)
		ORDER BY created_at DESC, rowid DESC
	`
	videos, err := r.queryVideos(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarked videos: %w", err)
	}
	return videos, nil
}

// AddLike adds userID to the likes set.
func (r *videoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, now string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO video_likes (video_id, user_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (video_id, user_id) DO NOTHING`,
			videoID, userID, now)
		return err
	})
}

// RemoveLike removes userID from the likes set.
func (r *videoRepository) RemoveLike(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, _ string) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM video_likes WHERE video_id = ? AND user_id = ?`,
			videoID, userID)
		return err
	})
}

// AddBookmark adds userID to the bookmarks set.
func (r *videoRepository) AddBookmark(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, now string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO video_bookmarks (video_id, user_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (video_id, user_id) DO NOTHING`,
			videoID, userID, now)
		return err
	})
}

// RemoveBookmark removes userID from the bookmarks set.
func (r *videoRepository) RemoveBookmark(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, _ string) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM video_bookmarks WHERE video_id = ? AND user_id = ?`,
			videoID, userID)
		return err
	})
}

// AppendComment appends a comment to the video.
func (r *videoRepository) AppendComment(ctx context.Context, videoID string, comment *domain.Comment) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, _ string) error {
		return insertComment(ctx, tx, videoID, comment)
	})
}

// ReplaceCaptions replaces the caption cue list.
func (r *videoRepository) ReplaceCaptions(ctx context.Context, videoID string, cues []domain.CaptionCue) error {
	return r.mutate(ctx, videoID, func(tx *sql.Tx, _ string) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_captions WHERE video_id = ?`, videoID); err != nil {
			return err
		}
		return insertCaptions(ctx, tx, videoID, cues)
	})
}

// mutate bumps updated_at of the video and runs fn in the same transaction.
// A missing video yields domain.ErrVideoNotFound.
func (r *videoRepository) mutate(ctx context.Context, videoID string, fn func(tx *sql.Tx, now string) error) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())

		result, err := tx.ExecContext(ctx, `UPDATE videos SET updated_at = ? WHERE id = ?`, now, videoID)
		if err != nil {
			return fmt.Errorf("failed to touch video: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return domain.ErrVideoNotFound
		}

		if err := fn(tx, now); err != nil {
			return fmt.Errorf("failed to update video %s: %w", videoID, err)
		}
		return nil
	})
}

func insertComment(ctx context.Context, tx *sql.Tx, videoID string, c *domain.Comment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO video_comments (id, video_id, user_id, user_email, username, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, videoID, c.UserID, c.UserEmail, c.Username, c.Text, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store comment: %w", err)
	}
	return nil
}

func insertCaptions(ctx context.Context, tx *sql.Tx, videoID string, cues []domain.CaptionCue) error {
	for i, cue := range cues {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO video_captions (video_id, position, text, start_time, end_time)
			VALUES (?, ?, ?, ?, ?)`,
			videoID, i, cue.Text, cue.StartTime, cue.EndTime,
		)
		if err != nil {
			return fmt.Errorf("failed to store caption cue %d: %w", i, err)
		}
	}
	return nil
}

func (r *videoRepository) queryVideos(ctx context.Context, query string, args ...interface{}) ([]*domain.Video, error) {
	videos, err := collectVideos(ctx, r.db.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := hydrateVideos(ctx, r.db.db, videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func collectVideos(ctx context.Context, q querier, query string, args ...interface{}) ([]*domain.Video, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := make([]*domain.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}
	return videos, nil
}

func scanVideo(s scanner) (*domain.Video, error) {
	video := &domain.Video{
		Likes:     []string{},
		Comments:  []domain.Comment{},
		Captions:  []domain.CaptionCue{},
		Bookmarks: []string{},
	}
	var createdAt, updatedAt string

	err := s.Scan(
		&video.ID,
		&video.Caption,
		&video.VideoURL,
		&video.ThumbnailURL,
		&video.UserID,
		&video.UserEmail,
		&video.Username,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.CreatedAt = parseTime(createdAt)
	video.UpdatedAt = parseTime(updatedAt)
	return video, nil
}

// hydrateVideos loads likes, bookmarks, comments and captions for a batch of videos.
func hydrateVideos(ctx context.Context, q querier, videos []*domain.Video) error {
	if len(videos) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Video, len(videos))
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if _, ok := byID[v.ID]; !ok {
			ids = append(ids, v.ID)
		}
		byID[v.ID] = v
	}
	list, err := idList(ids)
	if err != nil {
		return err
	}
	args := []interface{}{list}

	err = eachPair(ctx, q,
		`SELECT video_id, user_id FROM video_likes WHERE video_id IN (`+idSet+`) ORDER BY created_at, rowid`,
		args, func(videoID, userID string) {
			v := byID[videoID]
			v.Likes = append(v.Likes, userID)
		})
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT video_id, user_id FROM video_bookmarks WHERE video_id IN (`+idSet+`) ORDER BY created_at, rowid`,
		args, func(videoID, userID string) {
			v := byID[videoID]
			v.Bookmarks = append(v.Bookmarks, userID)
		})
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	if err := loadComments(ctx, q, args, byID); err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	if err := loadCaptions(ctx, q, args, byID); err != nil {
		return fmt.Errorf("failed to load captions: %w", err)
	}
	return nil
}

func loadComments(ctx context.Context, q querier, args []interface{}, byID map[string]*domain.Video) error {
	rows, err := q.QueryContext(ctx, `
		SELECT video_id, id, user_id, user_email, username, text, created_at
		FROM video_comments
		WHERE video_id IN (`+idSet+`)
		ORDER BY seq`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var videoID, createdAt string
		var c domain.Comment
		if err := rows.Scan(&videoID, &c.ID, &c.UserID, &c.UserEmail, &c.Username, &c.Text, &createdAt); err != nil {
			return err
		}
		c.CreatedAt = parseTime(createdAt)
		v := byID[videoID]
		v.Comments = append(v.Comments, c)
	}
	return rows.Err()
}

func loadCaptions(ctx context.Context, q querier, args []interface{}, byID map[string]*domain.Video) error {
	rows, err := q.QueryContext(ctx, `
		SELECT video_id, text, start_time, end_time
		FROM video_captions
		WHERE video_id IN (`+idSet+`)
		ORDER BY video_id, position`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var videoID string
		var cue domain.CaptionCue
		if err := rows.Scan(&videoID, &cue.Text, &cue.StartTime, &cue.EndTime); err != nil {
			return err
		}
		v := byID[videoID]
		v.Captions = append(v.Captions, cue)
	}
	return rows.Err()
}

// Ensure videoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*videoRepository)(nil)
