package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// videoRepository implements repository.VideoRepository for PostgreSQL.
type videoRepository struct {
	db *DB
}

// NewVideoRepository creates a new PostgreSQL video repository.
func NewVideoRepository(db *DB) repository.VideoRepository {
	return &videoRepository{db: db}
}

const videoColumns = `v.id, v.caption, v.video_url, v.thumbnail_url, v.user_id, v.user_email, v.username, v.created_at, v.updated_at`

// Create creates a new video with its child rows.
func (r *videoRepository) Create(ctx context.Context, video *domain.Video) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO videos (id, caption, video_url, thumbnail_url, user_id, user_email, username, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			video.ID,
			video.Caption,
			video.VideoURL,
			video.ThumbnailURL,
			video.UserID,
			video.UserEmail,
			video.Username,
			video.CreatedAt,
			video.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to create video: %w", err)
		}

		batch := &pgx.Batch{}
		for _, userID := range video.Likes {
			batch.Queue(`INSERT INTO video_likes (video_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				video.ID, userID, video.CreatedAt)
		}
		for _, userID := range video.Bookmarks {
			batch.Queue(`INSERT INTO video_bookmarks (video_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				video.ID, userID, video.CreatedAt)
		}
		for i := range video.Comments {
			queueComment(batch, video.ID, &video.Comments[i])
		}
		queueCaptions(batch, video.ID, video.Captions)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to store video children: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a video by ID.
func (r *videoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	video, err := scanVideo(r.db.Pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos v WHERE v.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	if err := hydrateVideos(ctx, r.db.Pool, []*domain.Video{video}); err != nil {
		return nil, err
	}
	return video, nil
}

// List returns all videos, newest first.
func (r *videoRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Video, error) {
	limit, offset := limitOffset(opts)
	videos, err := r.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		ORDER BY v.created_at DESC, v.seq DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// ListByUser returns the videos authored by userID, newest first.
func (r *videoRepository) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	limit, offset := limitOffset(opts)
	videos, err := r.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		WHERE v.user_id = $1
		ORDER BY v.created_at DESC, v.seq DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
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

	limit, offset := limitOffset(opts)
	videos, err := r.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		WHERE v.user_id = ANY($1)
		ORDER BY v.created_at DESC, v.seq DESC
		LIMIT $2 OFFSET $3`, userIDs, limit, offset)
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

	videos, err := r.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		WHERE v.id = ANY($1)
		ORDER BY v.created_at DESC, v.seq DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos by ids: %w", err)
	}
	return videos, nil
}

// ListBookmarkedBy returns the videos bookmarked by userID, newest first.
func (r *videoRepository) ListBookmarkedBy(ctx context.Context, userID string) ([]*domain.Video, error) {
	videos, err := r.queryVideos(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		JOIN video_bookmarks b ON b.video_id = v.id
		WHERE b.user_id = $1
		ORDER BY v.created_at DESC, v.seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarked videos: %w", err)
	}
	return videos, nil
}

// AddLike adds userID to the likes set.
func (r *videoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, now time.Time) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO video_likes (video_id, user_id, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (video_id, user_id) DO NOTHING`, videoID, userID, now)
		return err
	})
}

// RemoveLike removes userID from the likes set.
func (r *videoRepository) RemoveLike(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, _ time.Time) error {
		_, err := tx.Exec(ctx, `DELETE FROM video_likes WHERE video_id = $1 AND user_id = $2`, videoID, userID)
		return err
	})
}

// AddBookmark adds userID to the bookmarks set.
func (r *videoRepository) AddBookmark(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, now time.Time) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO video_bookmarks (video_id, user_id, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (video_id, user_id) DO NOTHING`, videoID, userID, now)
		return err
	})
}

// RemoveBookmark removes userID from the bookmarks set.
func (r *videoRepository) RemoveBookmark(ctx context.Context, videoID, userID string) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, _ time.Time) error {
		_, err := tx.Exec(ctx, `DELETE FROM video_bookmarks WHERE video_id = $1 AND user_id = $2`, videoID, userID)
		return err
	})
}

// AppendComment appends a comment to the video.
func (r *videoRepository) AppendComment(ctx context.Context, videoID string, comment *domain.Comment) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, _ time.Time) error {
		batch := &pgx.Batch{}
		queueComment(batch, videoID, comment)
		return tx.SendBatch(ctx, batch).Close()
	})
}

// ReplaceCaptions replaces the caption cue list.
func (r *videoRepository) ReplaceCaptions(ctx context.Context, videoID string, cues []domain.CaptionCue) error {
	return r.mutate(ctx, videoID, func(tx pgx.Tx, _ time.Time) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM video_captions WHERE video_id = $1`, videoID)
		queueCaptions(batch, videoID, cues)
		return tx.SendBatch(ctx, batch).Close()
	})
}

// mutate bumps updated_at of the video and runs fn in the same transaction.
func (r *videoRepository) mutate(ctx context.Context, videoID string, fn func(tx pgx.Tx, now time.Time) error) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		tag, err := tx.Exec(ctx, `UPDATE videos SET updated_at = $1 WHERE id = $2`, now, videoID)
		if err != nil {
			return fmt.Errorf("failed to touch video: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVideoNotFound
		}

		if err := fn(tx, now); err != nil {
			return fmt.Errorf("failed to update video %s: %w", videoID, err)
		}
		return nil
	})
}

func queueComment(batch *pgx.Batch, videoID string, c *domain.Comment) {
	batch.Queue(`
		INSERT INTO video_comments (id, video_id, user_id, user_email, username, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, videoID, c.UserID, c.UserEmail, c.Username, c.Text, c.CreatedAt)
}

func queueCaptions(batch *pgx.Batch, videoID string, cues []domain.CaptionCue) {
	for i, cue := range cues {
		batch.Queue(`
			INSERT INTO video_captions (video_id, position, text, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)`,
			videoID, i, cue.Text, cue.StartTime, cue.EndTime)
	}
}

func (r *videoRepository) queryVideos(ctx context.Context, query string, args ...any) ([]*domain.Video, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	videos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Video, error) {
		return scanVideo(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan videos: %w", err)
	}

	if err := hydrateVideos(ctx, r.db.Pool, videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func scanVideo(row pgx.Row) (*domain.Video, error) {
	video := &domain.Video{
		Likes:     []string{},
		Comments:  []domain.Comment{},
		Captions:  []domain.CaptionCue{},
		Bookmarks: []string{},
	}
	err := row.Scan(
		&video.ID,
		&video.Caption,
		&video.VideoURL,
		&video.ThumbnailURL,
		&video.UserID,
		&video.UserEmail,
		&video.Username,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	video.CreatedAt = video.CreatedAt.UTC()
	video.UpdatedAt = video.UpdatedAt.UTC()
	return video, nil
}

// hydrateVideos loads likes, bookmarks, comments and captions for a batch of videos.
func hydrateVideos(ctx context.Context, q Querier, videos []*domain.Video) error {
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

	err := eachPair(ctx, q,
		`SELECT video_id, user_id FROM video_likes WHERE video_id = ANY($1) ORDER BY seq`,
		ids, func(videoID, userID string) {
			v := byID[videoID]
			v.Likes = append(v.Likes, userID)
		})
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT video_id, user_id FROM video_bookmarks WHERE video_id = ANY($1) ORDER BY seq`,
		ids, func(videoID, userID string) {
			v := byID[videoID]
			v.Bookmarks = append(v.Bookmarks, userID)
		})
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	if err := loadComments(ctx, q, ids, byID); err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	if err := loadCaptions(ctx, q, ids, byID); err != nil {
		return fmt.Errorf("failed to load captions: %w", err)
	}
	return nil
}

func loadComments(ctx context.Context, q Querier, ids []string, byID map[string]*domain.Video) error {
	rows, err := q.Query(ctx, `
		SELECT video_id, id, user_id, user_email, username, text, created_at
		FROM video_comments
		WHERE video_id = ANY($1)
		ORDER BY seq`, ids)
	if err != nil {
		return err
	}

	var (
		videoID string
		c       domain.Comment
	)
	_, err = pgx.ForEachRow(rows, []any{&videoID, &c.ID, &c.UserID, &c.UserEmail, &c.Username, &c.Text, &c.CreatedAt}, func() error {
		c.CreatedAt = c.CreatedAt.UTC()
		v := byID[videoID]
		v.Comments = append(v.Comments, c)
		return nil
	})
	return err
}

func loadCaptions(ctx context.Context, q Querier, ids []string, byID map[string]*domain.Video) error {
	rows, err := q.Query(ctx, `
		SELECT video_id, text, start_time, end_time
		FROM video_captions
		WHERE video_id = ANY($1)
		ORDER BY video_id, position`, ids)
	if err != nil {
		return err
	}

	var (
		videoID string
		cue     domain.CaptionCue
	)
	_, err = pgx.ForEachRow(rows, []any{&videoID, &cue.Text, &cue.StartTime, &cue.EndTime}, func() error {
		v := byID[videoID]
		v.Captions = append(v.Captions, cue)
		return nil
	})
	return err
}

// Ensure videoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*videoRepository)(nil)
