package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/lock"
	"github.com/prn-tf/reelhub/internal/repository"
)

func videoIDs(videos []*domain.Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}

func TestMergeBookmarks(t *testing.T) {
	v1 := &domain.Video{ID: "v1"}
	v2 := &domain.Video{ID: "v2"}
	v3 := &domain.Video{ID: "v3"}

	tests := []struct {
		name    string
		current []*domain.Video
		legacy  []*domain.Video
		want    []string
	}{
		{"overlap", []*domain.Video{v3, v1}, []*domain.Video{v1, v2}, []string{"v3", "v1", "v2"}},
		{"no legacy", []*domain.Video{v2, v1}, nil, []string{"v2", "v1"}},
		{"only legacy", nil, []*domain.Video{v1}, []string{"v1"}},
		{"both empty", nil, nil, []string{}},
		{"duplicate inside legacy", nil, []*domain.Video{v2, v2, nil}, []string{"v2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, videoIDs(MergeBookmarks(tt.current, tt.legacy)))
		})
	}
}

func newBookmarkService(t *testing.T) (*BookmarkService, *MockUserRepository, *MockVideoRepository) {
	t.Helper()
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Close)
	return NewBookmarkService(users, videos, locker, lock.Options{TTL: time.Minute}, zerolog.Nop()), users, videos
}

func TestBookmarkService_Bookmarked(t *testing.T) {
	svc, users, videos := newBookmarkService(t)
	ctx := context.Background()

	owner := users.add(newTestUser("owner", time.Hour))
	v1 := videos.add(newTestVideo(owner, "v1", 3*time.Minute))
	v2 := videos.add(newTestVideo(owner, "v2", 2*time.Minute))
	v3 := videos.add(newTestVideo(owner, "v3", time.Minute))

	reader := newTestUser("reader", time.Hour)
	reader.LegacyBookmarks = []string{v1.ID, v2.ID, "deleted-video"}
	users.add(reader)

	v3.Bookmarks = []string{reader.ID}
	v1.Bookmarks = []string{reader.ID}

	got, err := svc.Bookmarked(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{v3.ID, v1.ID, v2.ID}, videoIDs(got))

	_, err = svc.Bookmarked(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestBookmarkService_Backfill(t *testing.T) {
	svc, users, videos := newBookmarkService(t)
	ctx := context.Background()

	owner := users.add(newTestUser("owner", time.Hour))
	v1 := videos.add(newTestVideo(owner, "v1", 2*time.Minute))
	v2 := videos.add(newTestVideo(owner, "v2", time.Minute))

	reader := newTestUser("reader", time.Hour)
	reader.LegacyBookmarks = []string{v1.ID, v2.ID, "deleted-video"}
	users.add(reader)
	v1.Bookmarks = []string{reader.ID}

	before, err := svc.Bookmarked(ctx, reader.ID)
	require.NoError(t, err)

	report, err := svc.BackfillLegacyBookmarks(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Users: 1, Bookmarks: 2, Dangling: 1, DryRun: true}, *report)

	stored, _ := users.GetByID(ctx, reader.ID)
	assert.Len(t, stored.LegacyBookmarks, 3, "dry run writes nothing")

	report, err = svc.BackfillLegacyBookmarks(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Users: 1, Bookmarks: 2, Dangling: 1}, *report)

	stored, _ = users.GetByID(ctx, reader.ID)
	assert.Empty(t, stored.LegacyBookmarks)

	got, _ := videos.GetByID(ctx, v2.ID)
	assert.Equal(t, []string{reader.ID}, got.Bookmarks)
	got, _ = videos.GetByID(ctx, v1.ID)
	assert.Equal(t, []string{reader.ID}, got.Bookmarks, "existing bookmark is not duplicated")

	after, err := svc.Bookmarked(ctx, reader.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, videoIDs(before), videoIDs(after), "backfill does not change what the user sees")

	report, err = svc.BackfillLegacyBookmarks(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Users, "second run is a no-op")
}

func TestBookmarkService_Backfill_Exclusive(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Close)
	svc := NewBookmarkService(users, videos, locker, lock.Options{TTL: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, lock.Keys.BookmarkBackfill(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.BackfillLegacyBookmarks(ctx, false)
	assert.ErrorIs(t, err, repository.ErrLockNotAcquired)
}

// leaseLocker counts lease renewals and refuses them after maxExtends.
type leaseLocker struct {
	*lock.MemoryLocker
	extends    int
	maxExtends int
}

func (l *leaseLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.extends++
	if l.extends > l.maxExtends {
		return false, nil
	}
	return l.MemoryLocker.Extend(ctx, key, token, ttl)
}

func TestBookmarkService_Backfill_RenewsLease(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	mem := lock.NewMemoryLocker()
	t.Cleanup(mem.Close)
	ctx := context.Background()

	owner := users.add(newTestUser("owner", time.Hour))
	v := videos.add(newTestVideo(owner, "clip", time.Minute))
	for _, name := range []string{"reader1", "reader2", "reader3"} {
		u := newTestUser(name, time.Hour)
		u.LegacyBookmarks = []string{v.ID}
		users.add(u)
	}

	locker := &leaseLocker{MemoryLocker: mem, maxExtends: 10}
	svc := NewBookmarkService(users, videos, locker, lock.Options{TTL: time.Minute}, zerolog.Nop())
	report, err := svc.BackfillLegacyBookmarks(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 3, locker.extends, "one renewal per migrated user")

	held, err := mem.IsHeld(ctx, lock.Keys.BookmarkBackfill())
	require.NoError(t, err)
	assert.False(t, held, "lock released when the run ends")
}

func TestBookmarkService_Backfill_StopsWhenLeaseLost(t *testing.T) {
	users := NewMockUserRepository()
	videos := NewMockVideoRepository()
	mem := lock.NewMemoryLocker()
	t.Cleanup(mem.Close)
	ctx := context.Background()

	owner := users.add(newTestUser("owner", time.Hour))
	v := videos.add(newTestVideo(owner, "clip", time.Minute))
	for _, name := range []string{"reader1", "reader2", "reader3"} {
		u := newTestUser(name, time.Hour)
		u.LegacyBookmarks = []string{v.ID}
		users.add(u)
	}

	locker := &leaseLocker{MemoryLocker: mem, maxExtends: 1}
	svc := NewBookmarkService(users, videos, locker, lock.Options{TTL: time.Minute}, zerolog.Nop())
	report, err := svc.BackfillLegacyBookmarks(ctx, false)
	assert.ErrorIs(t, err, repository.ErrLockLost)
	assert.Equal(t, 2, report.Users, "the run stops after the first refused renewal")

	remaining, err := users.ListWithLegacyBookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
