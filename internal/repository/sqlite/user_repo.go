package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, username, password_hash, profile_picture, bio,
	stats_posts, stats_likes, stats_comments, stats_views, created_at, updated_at`

// Create creates a new user together with any legacy bookmark list it carries.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO users (` + userColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
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
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: username or email already exists", domain.ErrUserAlreadyExists)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		for i, videoID := range user.LegacyBookmarks {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO legacy_bookmarks (user_id, video_id, position) VALUES (?, ?, ?)`,
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
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	if err := hydrateUsers(ctx, r.db.db, []*domain.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, domain.NormalizeEmail(email)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, domain.NormalizeUsername(username)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return count > 0, nil
}

// Update persists the mutable profile fields.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = ?, profile_picture = ?, bio = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.ProfilePicture,
		user.Bio,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// UpdateStats persists the cached aggregate counters.
func (r *userRepository) UpdateStats(ctx context.Context, id string, stats domain.UserStats) error {
	query := `
		UPDATE users
		SET stats_posts = ?, stats_likes = ?, stats_comments = ?, stats_views = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, stats.Posts, stats.Likes, stats.Comments, stats.Views, id)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// List returns users with pagination, newest first.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	limit, offset := limitOffset(opts)
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	users, err := r.queryUsers(ctx, query, limit, offset)
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

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())

		// Touching both rows doubles as the existence check.
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET updated_at = ? WHERE id IN (?, ?)`,
			now, followerID, followeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to touch users: %w", err)
		}
		if n, _ := result.RowsAffected(); n != 2 {
			return domain.ErrUserNotFound
		}

		if follow {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
				 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
				followerID, followeeID, now,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
				followerID, followeeID,
			)
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
	query := `
		SELECT ` + prefixed("u", userColumns) + `
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = ?
		ORDER BY f.created_at DESC, f.rowid DESC
		LIMIT ? OFFSET ?
	`
	users, err := r.queryUsers(ctx, query, userID, limit, offset)
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
	query := `
		SELECT ` + prefixed("u", userColumns) + `
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = ?
		ORDER BY f.created_at DESC, f.rowid DESC
		LIMIT ? OFFSET ?
	`
	users, err := r.queryUsers(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return users, nil
}

// requireUser returns domain.ErrUserNotFound when no user has id.
func (r *userRepository) requireUser(ctx context.Context, id string) error {
	var one int
	err := r.db.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if isNoRows(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return nil
}

// ListWithLegacyBookmarks returns users that still carry legacy bookmarks.
func (r *userRepository) ListWithLegacyBookmarks(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id IN (SELECT DISTINCT user_id FROM legacy_bookmarks)
		ORDER BY created_at
	`
	users, err := r.queryUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with legacy bookmarks: %w", err)
	}
	return users, nil
}

// ClearLegacyBookmarks empties the legacy bookmark list of a user.
func (r *userRepository) ClearLegacyBookmarks(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM legacy_bookmarks WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear legacy bookmarks: %w", err)
	}
	return nil
}

// queryUsers runs a query returning userColumns and hydrates the edge sets.
func (r *userRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	users, err := collectUsers(ctx, r.db.db, query, args...)
	if err != nil {
		return nil, err
	}
	// The row cursor is closed here, so hydration can reuse the single connection.
	if err := hydrateUsers(ctx, r.db.db, users); err != nil {
		return nil, err
	}
	return users, nil
}

func collectUsers(ctx context.Context, q querier, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*domain.User, error) {
	user := &domain.User{
		Followers: []string{},
		Following: []string{},
	}
	var createdAt, updatedAt string

	err := s.Scan(
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
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	return user, nil
}

// hydrateUsers loads follow edges and legacy bookmarks for a batch of users.
func hydrateUsers(ctx context.Context, q querier, users []*domain.User) error {
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
	list, err := idList(ids)
	if err != nil {
		return err
	}
	args := []interface{}{list}

	err = eachPair(ctx, q,
		`SELECT follower_id, followee_id FROM follows WHERE follower_id IN (`+idSet+`) ORDER BY created_at, rowid`,
		args, func(follower, followee string) {
			u := byID[follower]
			u.Following = append(u.Following, followee)
		})
	if err != nil {
		return fmt.Errorf("failed to load following: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT followee_id, follower_id FROM follows WHERE followee_id IN (`+idSet+`) ORDER BY created_at, rowid`,
		args, func(followee, follower string) {
			u := byID[followee]
			u.Followers = append(u.Followers, follower)
		})
	if err != nil {
		return fmt.Errorf("failed to load followers: %w", err)
	}

	err = eachPair(ctx, q,
		`SELECT user_id, video_id FROM legacy_bookmarks WHERE user_id IN (`+idSet+`) ORDER BY position`,
		args, func(userID, videoID string) {
			u := byID[userID]
			u.LegacyBookmarks = append(u.LegacyBookmarks, videoID)
		})
	if err != nil {
		return fmt.Errorf("failed to load legacy bookmarks: %w", err)
	}

	return nil
}

// eachPair runs a two-column string query and calls fn for every row.
func eachPair(ctx context.Context, q querier, query string, args []interface{}, fn func(a, b string)) error {
	rows, err := q.QueryContext(ctx, query, args...)
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

// idSet binds ids as one JSON array parameter expanded by json_each, so a
// statement never exceeds SQLite's bound variable limit however many ids it
// filters on. Use it as "col IN (" + idSet + ")".
const idSet = `SELECT value FROM json_each(?)`

// idList encodes ids for idSet.
func idList(ids []string) (string, error) {
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id list: %w", err)
	}
	return string(b), nil
}

// limitOffset maps ListOptions to SQLite LIMIT/OFFSET values.
// LIMIT -1 means no limit in SQLite.
func limitOffset(opts repository.ListOptions) (int, int) {
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if opts.Unbounded() {
		return -1, offset
	}
	return opts.Limit, offset
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
