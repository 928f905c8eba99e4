package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/repository"
)

func newSocialService(t *testing.T) (*SocialService, *MockUserRepository) {
	t.Helper()
	users := NewMockUserRepository()
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Close)
	opts := lock.Options{TTL: time.Second, MaxRetries: 200, RetryDelay: time.Millisecond}
	return NewSocialService(users, locker, opts, nil, zerolog.Nop()), users
}

func TestSocialService_ToggleFollow_RoundTrip(t *testing.T) {
	svc, users := newSocialService(t)
	ctx := context.Background()

	a := users.add(newTestUser("alice", time.Hour))
	b := users.add(newTestUser("bob", time.Hour))

	out, err := svc.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, out.Following)
	assert.Equal(t, 1, out.FollowersCount)
	assert.Equal(t, 0, out.FollowingCount)

	alice, _ := users.GetByID(ctx, a.ID)
	bob, _ := users.GetByID(ctx, b.ID)
	assert.Equal(t, []string{b.ID}, alice.Following)
	assert.Equal(t, []string{a.ID}, bob.Followers)

	out, err = svc.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, out.Following)
	assert.Equal(t, 0, out.FollowersCount)

	alice, _ = users.GetByID(ctx, a.ID)
	bob, _ = users.GetByID(ctx, b.ID)
	assert.Empty(t, alice.Following)
	assert.Empty(t, bob.Followers)
}

func TestSocialService_ToggleFollow_Errors(t *testing.T) {
	svc, users := newSocialService(t)
	ctx := context.Background()
	a := users.add(newTestUser("alice", time.Hour))

	_, err := svc.ToggleFollow(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.ToggleFollow(ctx, a.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.ToggleFollow(ctx, "ghost", a.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	b := users.add(newTestUser("bob", time.Hour))
	users.followErr = errors.New("tx aborted")
	_, err = svc.ToggleFollow(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInternalError)
}

func TestSocialService_ToggleFollow_ConcurrentTogglesAlternate(t *testing.T) {
	svc, users := newSocialService(t)
	ctx := context.Background()

	a := users.add(newTestUser("alice", time.Hour))
	b := users.add(newTestUser("bob", time.Hour))

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleFollow(ctx, a.ID, b.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// An even number of serialized toggles ends where it started,
	// with both sides of the edge agreeing.
	alice, _ := users.GetByID(ctx, a.ID)
	bob, _ := users.GetByID(ctx, b.ID)
	assert.Empty(t, alice.Following)
	assert.Empty(t, bob.Followers)
}

func TestSocialService_ToggleFollow_Busy(t *testing.T) {
	users := NewMockUserRepository()
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Close)
	svc := NewSocialService(users, locker, lock.Options{TTL: time.Minute}, nil, zerolog.Nop())
	ctx := context.Background()

	a := users.add(newTestUser("alice", time.Hour))
	b := users.add(newTestUser("bob", time.Hour))

	_, ok, err := locker.Acquire(ctx, lock.Keys.FollowPair(b.ID, a.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.ToggleFollow(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrInternalError)
	assert.ErrorContains(t, err, repository.ErrLockNotAcquired.Error())
}

func TestSocialService_ListFollowEdges(t *testing.T) {
	svc, users := newSocialService(t)
	ctx := context.Background()

	target := users.add(newTestUser("target", time.Hour))
	var followers []*domain.User
	for _, name := range []string{"first", "second", "third"} {
		u := users.add(newTestUser(name, time.Hour))
		_, err := svc.ToggleFollow(ctx, u.ID, target.ID)
		require.NoError(t, err)
		followers = append(followers, u)
	}

	got, err := svc.ListFollowers(ctx, target.ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Username, "newest edge first")
	assert.Equal(t, "first", got[2].Username)

	got, err = svc.ListFollowers(ctx, target.ID, repository.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Username)

	got, err = svc.ListFollowing(ctx, followers[0].ID, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, target.ID, got[0].ID)

	_, err = svc.ListFollowers(ctx, "ghost", repository.ListOptions{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
