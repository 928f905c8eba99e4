package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewFromSQL(sqlDB, zerolog.Nop()), mock
}

var errDisk = errors.New("disk I/O error")

func TestUserRepository_GetByID_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = `).
		WithArgs("u1").
		WillReturnError(errDisk)

	_, err := repo.GetByID(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = `).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByEmail_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = `).
		WithArgs("a@example.com").
		WillReturnError(errDisk)

	_, err := repo.ExistsByEmail(context.Background(), "A@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check email existence")
}

func TestUserRepository_SetFollow_RollsBackWhenUserMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET updated_at = `).
		WithArgs(sqlmock.AnyArg(), "a", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.SetFollow(context.Background(), "a", "b", true)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetFollow_RollsBackOnEdgeFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET updated_at = `).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO follows`).
		WillReturnError(errDisk)
	mock.ExpectRollback()

	err := repo.SetFollow(context.Background(), "a", "b", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepository_AddLike_RollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVideoRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE videos SET updated_at = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO video_likes`).
		WillReturnError(errDisk)
	mock.ExpectRollback()

	err := repo.AddLike(context.Background(), "v1", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update video v1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepository_ListByUser_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVideoRepository(db)

	mock.ExpectQuery(`SELECT .* FROM videos`).
		WillReturnError(errDisk)

	_, err := repo.ListByUser(context.Background(), "u1", repository.ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list videos by user")
}

func TestUserRepository_ListFollowers_UnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM users WHERE id = `).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err := repo.ListFollowers(context.Background(), "ghost", repository.ListOptions{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "edge query never runs")
}

func TestUserRepository_ListFollowing_LookupError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM users WHERE id = `).
		WithArgs("u1").
		WillReturnError(errDisk)

	_, err := repo.ListFollowing(context.Background(), "u1", repository.ListOptions{})
	assert.ErrorIs(t, err, errDisk)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}
