package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/auth"
	"github.com/prn-tf/reelhub/internal/cache/memory"
	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

func newUserService(t *testing.T) (*UserService, *MockUserRepository, *MockVideoRepository, *memory.Cache) {
	t.Helper()
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	svc := NewUserService(users, videos, cache, UserServiceConfig{BcryptCost: 4, StatsTTL: time.Minute}, zerolog.Nop())
	return svc, users, videos, cache
}

func strPtr(s string) *string { return &s }

// =============================================================================
// Register
// =============================================================================

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		setup   func(*MockUserRepository)
		wantErr error
	}{
		{
			name:  "success",
			input: RegisterInput{Email: "Alice@Example.com", Password: "secret1", Username: "ab_12"},
		},
		{
			name:    "username too short",
			input:   RegisterInput{Email: "a@example.com", Password: "secret1", Username: "Ab"},
			wantErr: domain.ErrInvalidUsername,
		},
		{
			name:    "uppercase username",
			input:   RegisterInput{Email: "a@example.com", Password: "secret1", Username: "Alice"},
			wantErr: domain.ErrInvalidUsername,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "a@example.com", Password: "12345", Username: "alice"},
			wantErr: domain.ErrInvalidPassword,
		},
		{
			name:    "bad email",
			input:   RegisterInput{Email: "not-an-email", Password: "secret1", Username: "alice"},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:  "duplicate email",
			input: RegisterInput{Email: "taken@example.com", Password: "secret1", Username: "fresh"},
			setup: func(m *MockUserRepository) {
				m.add(domain.NewUser("taken@example.com", "other", "hash"))
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
		{
			name:  "duplicate username",
			input: RegisterInput{Email: "fresh@example.com", Password: "secret1", Username: "taken"},
			setup: func(m *MockUserRepository) {
				m.add(domain.NewUser("other@example.com", "taken", "hash"))
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _, _ := newUserService(t)
			if tt.setup != nil {
				tt.setup(users)
			}

			out, err := svc.Register(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "User registered successfully", out.Message)
			assert.Equal(t, "alice@example.com", out.User.Email)

			stored, err := users.GetByID(context.Background(), out.User.ID)
			require.NoError(t, err)
			assert.NotEqual(t, tt.input.Password, stored.PasswordHash)

			ok, err := auth.CheckPassword(stored.PasswordHash, tt.input.Password)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestUserService_Register_RepositoryFailure(t *testing.T) {
	svc, users, _, _ := newUserService(t)
	users.createErr = errors.New("disk full")

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "secret1", Username: "alice"})
	assert.ErrorIs(t, err, ErrInternalError)
}

// =============================================================================
// Login
// =============================================================================

func TestAuthService_Login(t *testing.T) {
	svc, users, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1", Username: "alice"})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "k", TokenTTL: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	authSvc := NewAuthService(users, tokens, zerolog.Nop())

	out, err := authSvc.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", out.User.Username)

	claims, err := tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.UserID())

	_, err = authSvc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authSvc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// =============================================================================
// Profiles
// =============================================================================

func TestUserService_Profile(t *testing.T) {
	svc, users, _, _ := newUserService(t)
	ctx := context.Background()

	alice := users.add(newTestUser("alice", time.Hour))
	users.add(newTestUser("bob", time.Hour))

	profile, err := svc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)

	_, err = svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	byName, err := svc.GetByUsername(ctx, "  ALICE ")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	_, err = svc.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:   alice.ID,
		Username: strPtr("alice_2"),
		Bio:      strPtr("  hello  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_2", updated.Username)
	assert.Equal(t, "hello", updated.Bio)

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Username: strPtr("bob")})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Username: strPtr("No")})
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	// Keeping one's own username is not a conflict.
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Username: strPtr("alice_2")})
	assert.NoError(t, err)
}

// =============================================================================
// Stats
// =============================================================================

func TestUserService_Stats(t *testing.T) {
	svc, users, videos, cache := newUserService(t)
	ctx := context.Background()

	alice := users.add(newTestUser("alice", time.Hour))
	v1 := videos.add(newTestVideo(alice, "one", 2*time.Minute))
	v1.Likes = []string{"u1", "u2"}
	v1.Comments = []domain.Comment{{ID: "c1", Text: "nice"}}
	videos.add(newTestVideo(alice, "two", time.Minute))

	stats, err := svc.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStats{Posts: 2, Likes: 2, Comments: 1}, *stats)

	stored, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, *stats, stored.Stats, "stats are persisted on the account")

	_, err = cache.Get(ctx, repository.CacheKeys.UserStats(alice.ID))
	require.NoError(t, err, "stats are cached")

	// Cached value is served until invalidated.
	videos.add(newTestVideo(alice, "three", 0))
	stats, err = svc.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Posts)

	svc.InvalidateStats(ctx, alice.ID)
	stats, err = svc.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Posts)

	_, err = svc.Stats(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, domain.UserStats{}, ComputeStats(nil))
}
