package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `u.id, u.email, u.username, u.password_hash, u.profile_picture, u.bio,
	u.stats_posts, u.stats_likes, u.stats_comments, u.stats_views, u.created_at, u.updated_at`

// Create creates a new user together with any legacy bookmark list it carries.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, username, password_hash, profile_picture, bio,
				stats_posts, stats_likes, stats_comments, stats_views, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			user.ID,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.ProfilePicture,
			user.Bio,
			user.Stats.Posts,
			user.Stats.Likes,
			user.Stats.Comments,
			user.Stats.Views,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: username or email already exists", domain.ErrUserAlreadyExists)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		for i, videoID := range user.LegacyBookmarks {
			_, err := tx.Exec(ctx, `
				INSERT INTO legacy_bookmarks (user_id, video_id, position) VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING`,
				user.ID, videoID, i,
			)
			if err != nil {
				return fmt.Errorf("failed to store legacy bookmark: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", domain.NormalizeEmail(email))
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username", domain.NormalizeUsername(username))
}

func (r *userRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.` + column + ` = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, value))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	if err := hydrateUsers(ctx, r.db.Pool, []*domain.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, domain.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, domain.NormalizeUsername(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// Update persists the mutable profile fields.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET username = $1, profile_picture = $2, bio = $3, updated_at = $4
		WHERE id = $5`,
		user.Username,
		user.ProfilePicture,
		user.Bio,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateStats persists the cached aggregate counters.
func (r *userRepository) UpdateStats(ctx context.Context, id string, stats domain.UserStats) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE users
		SET stats_posts = $1, stats_likes = $2, stats_comments = $3, stats_views = $4
		WHERE id = $5`,
		stats.Posts, stats.Likes, stats.Comments, stats.Views, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns users with pagination, newest first.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	limit, offset := limitOffset(opts)
	users, err := r.queryUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		ORDER BY u.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// SetFollow adds or removes the follow edge inside one transaction.
func (r *userRepository) SetFollow(ctx context.Context, followerID, followeeID string, follow bool) error {
	if followerID == followeeID {
		return domain.ErrSelfFollow
	}

	return r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		// Row locks on both users serialize concurrent toggles of the same pair.
		// Taking them in id order keeps A->B and B->A from deadlocking.
		tag, err := tx.Exec(ctx, `
			WITH locked AS (
				SELECT id FROM users WHERE id = ANY($2) ORDER BY id FOR NO KEY UPDATE
			)
			UPDATE users u SET updated_at = $1 FROM locked WHERE u.id = locked.id`,
			now, []string{followerID, followeeID})
		if err != nil {
			return fmt.Errorf("failed to touch users: %w", err)
		}
		if tag.RowsAffected() != 2 {
			return domain.ErrUserNotFound
		}

		if follow {
			_, err = tx.Exec(ctx, `
				INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)
				ON CONFLICT (follower_id, followee_id) DO NOTHING`,
				followerID, followeeID, now)
		} else {
			_, err = tx.Exec(ctx, `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
				followerID, followeeID)
		}
		if err != nil {
			return fmt.Errorf("failed to write follow edge: %w", err)
		}
		return nil
	})
}

// ListFollowers returns the users following userID, newest edge first.
func (r *userRepository) ListFollowers(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	if err := r.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	limit, offset := limitOffset(opts)
	users, err := r.queryUsers(ctx, `
		SELECT `+userColumns+`
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY f.created_at DESC, f.seq DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return users, nil
}

// ListFollowing returns the users userID follows, newest edge first.
func (r *userRepository) ListFollowing(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	if err := r.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	limit, offset := limitOffset(opts)
	users, err := r.queryUsers(ctx, `
		SELECT `+userColumns+`
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC, f.seq DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return users, nil
}

// requireUser returns domain.ErrUserNotFound when no user has id.
func (r *userRepository) requireUser(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListWithLegacyBookmarks returns users that still carry legacy bookmarks.
func (r *userRepository) ListWithLegacyBookmarks(ctx context.Context) ([]*domain.User, error) {
	users, err := r.queryUsers(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE EXISTS (SELECT 1 FROM legacy_bookmarks lb WHERE lb.user_id = u.id)
		ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with legacy bookmarks: %w", err)
	}
	return users, nil
}

// ClearLegacyBookmarks empties the legacy bookmark list of a user.
func (r *userRepository) ClearLegacyBookmarks(ctx context.Context, userID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM legacy_bookmarks WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear legacy bookmarks: %w", err)
	}
	return nil
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	if err := hydrateUsers(ctx, r.db.Pool, users); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{
		Followers: []string{},
		Following: []string{},
	}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.ProfilePicture,
		&user.Bio,
		&user.Stats.Posts,
		&user.Stats.Likes,
		&user.Stats.Comments,
		&user.Stats.Views,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// hydrateUsers loads follow edges and legacy bookmarks for a batch of users.
func hydrateUsers(ctx context.Context, q Querier, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[string]*domain.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if _, ok := byID[u.ID]; !ok {
			ids = append(ids, u.ID)
		}
		byID[u.ID] = u
	}

	err := eachPair(ctx, q,
		`SELECT follower_id, followee_id FROM follows WHERE follower_id = ANY($1) ORDER BY seq`,
		ids, func(follower, followee string) {
			u := byID[follower]
			u.Following = append(u.Following, followee)
		})
	if err != nil {
		return fmt.Errorf("failed to load following: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT followee_id, follower_id FROM follows WHERE followee_id = ANY($1) ORDER BY seq`,
		ids, func(followee, follower string) {
			u := byID[followee]
			u.Followers = append(u.Followers, follower)
		})
	if err != nil {
		return fmt.Errorf("failed to load followers: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT user_id, video_id FROM legacy_bookmarks WHERE user_id = ANY($1) ORDER BY position`,
		ids, func(userID, videoID string) {
			u := byID[userID]
			u.LegacyBookmarks = append(u.LegacyBookmarks, videoID)
		})
	if err != nil {
		return fmt.Errorf("failed to load legacy bookmarks: %w", err)
	}
	return nil
}

// eachPair runs a two-column text query filtered by an id array and calls fn per row.
func eachPair(ctx context.Context, q Querier, query string, ids []string, fn func(a, b string)) error {
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		fn(a, b)
	}
	return rows.Err()
}

// limitOffset maps ListOptions to LIMIT/OFFSET arguments. A nil limit is LIMIT ALL.
func limitOffset(opts repository.ListOptions) (any, int) {
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if opts.Unbounded() {
		return nil, offset
	}
	return opts.Limit, offset
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
