package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// MockUserRepository is a map-backed repository.UserRepository.
type MockUserRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	getErr    error
	createErr error
	followErr error
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// add stores u directly, bypassing uniqueness checks.
func (m *MockUserRepository) add(u *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	c.LegacyBookmarks = append([]string(nil), u.LegacyBookmarks...)
	return &c
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) find(match func(*domain.User) bool) (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return cloneUser(u), true
		}
	}
	return nil, false
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	email = domain.NormalizeEmail(email)
	if u, ok := m.find(func(u *domain.User) bool { return u.Email == email }); ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if u, ok := m.find(func(u *domain.User) bool { return u.Username == username }); ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.find(func(u *domain.User) bool { return u.Email == email })
	return ok, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := m.find(func(u *domain.User) bool { return u.Username == username })
	return ok, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.Username = user.Username
	stored.ProfilePicture = user.ProfilePicture
	stored.Bio = user.Bio
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockUserRepository) UpdateStats(ctx context.Context, id string, stats domain.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	stored.Stats = stats
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.mu.Lock()
	all := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, cloneUser(u))
	}
	m.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return &repository.ListResult[domain.User]{
		Items:  pageOf(all, opts),
		Total:  int64(len(all)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) SetFollow(ctx context.Context, followerID, followeeID string, follow bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.followErr != nil {
		return m.followErr
	}
	follower, ok := m.users[followerID]
	if !ok {
		return domain.ErrUserNotFound
	}
	followee, ok := m.users[followeeID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if follow {
		follower.Following = addID(follower.Following, followeeID)
		followee.Followers = addID(followee.Followers, followerID)
	} else {
		follower.Following = removeID(follower.Following, followeeID)
		followee.Followers = removeID(followee.Followers, followerID)
	}
	return nil
}

func (m *MockUserRepository) edges(userID string, pick func(*domain.User) []string, opts repository.ListOptions) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	ids := pick(u)
	out := make([]*domain.User, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if other, ok := m.users[ids[i]]; ok {
			out = append(out, cloneUser(other))
		}
	}
	return pageOf(out, opts), nil
}

func (m *MockUserRepository) ListFollowers(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	return m.edges(userID, func(u *domain.User) []string { return u.Followers }, opts)
}

func (m *MockUserRepository) ListFollowing(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	return m.edges(userID, func(u *domain.User) []string { return u.Following }, opts)
}

func (m *MockUserRepository) ListWithLegacyBookmarks(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if len(u.LegacyBookmarks) > 0 {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockUserRepository) ClearLegacyBookmarks(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LegacyBookmarks = nil
	return nil
}

// MockVideoRepository is a map-backed repository.VideoRepository.
type MockVideoRepository struct {
	mu        sync.Mutex
	videos    map[string]*domain.Video
	getErr    error
	createErr error

	// listByUsersCalls counts ListByUsers invocations.
	listByUsersCalls int
}

var _ repository.VideoRepository = (*MockVideoRepository)(nil)

func NewMockVideoRepository() *MockVideoRepository {
	return &MockVideoRepository{videos: make(map[string]*domain.Video)}
}

func (m *MockVideoRepository) add(v *domain.Video) *domain.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = v
	return v
}

func cloneVideo(v *domain.Video) *domain.Video {
	c := *v
	c.Likes = append([]string{}, v.Likes...)
	c.Bookmarks = append([]string{}, v.Bookmarks...)
	c.Comments = append([]domain.Comment{}, v.Comments...)
	c.Captions = append([]domain.CaptionCue{}, v.Captions...)
	return &c
}

func (m *MockVideoRepository) Create(ctx context.Context, video *domain.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.videos[video.ID] = cloneVideo(video)
	return nil
}

func (m *MockVideoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if v, ok := m.videos[id]; ok {
		return cloneVideo(v), nil
	}
	return nil, domain.ErrVideoNotFound
}

func (m *MockVideoRepository) filter(match func(*domain.Video) bool, opts repository.ListOptions) []*domain.Video {
	m.mu.Lock()
	out := make([]*domain.Video, 0)
	for _, v := range m.videos {
		if match(v) {
			out = append(out, cloneVideo(v))
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pageOf(out, opts)
}

func (m *MockVideoRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Video, error) {
	return m.filter(func(*domain.Video) bool { return true }, opts), nil
}

func (m *MockVideoRepository) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	return m.filter(func(v *domain.Video) bool { return v.UserID == userID }, opts), nil
}

func (m *MockVideoRepository) ListByUsers(ctx context.Context, userIDs []string, opts repository.ListOptions) ([]*domain.Video, error) {
	m.mu.Lock()
	m.listByUsersCalls++
	m.mu.Unlock()
	return m.filter(func(v *domain.Video) bool { return containsID(userIDs, v.UserID) }, opts), nil
}

func (m *MockVideoRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Video, error) {
	return m.filter(func(v *domain.Video) bool { return containsID(ids, v.ID) }, repository.ListOptions{}), nil
}

func (m *MockVideoRepository) ListBookmarkedBy(ctx context.Context, userID string) ([]*domain.Video, error) {
	return m.filter(func(v *domain.Video) bool { return containsID(v.Bookmarks, userID) }, repository.ListOptions{}), nil
}

func (m *MockVideoRepository) mutate(id string, fn func(v *domain.Video)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrVideoNotFound
	}
	fn(v)
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockVideoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Likes = addID(v.Likes, userID) })
}

func (m *MockVideoRepository) RemoveLike(ctx context.Context, videoID, userID string) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Likes = removeID(v.Likes, userID) })
}

func (m *MockVideoRepository) AddBookmark(ctx context.Context, videoID, userID string) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Bookmarks = addID(v.Bookmarks, userID) })
}

func (m *MockVideoRepository) RemoveBookmark(ctx context.Context, videoID, userID string) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Bookmarks = removeID(v.Bookmarks, userID) })
}

func (m *MockVideoRepository) AppendComment(ctx context.Context, videoID string, comment *domain.Comment) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Comments = append(v.Comments, *comment) })
}

func (m *MockVideoRepository) ReplaceCaptions(ctx context.Context, videoID string, cues []domain.CaptionCue) error {
	return m.mutate(videoID, func(v *domain.Video) { v.Captions = append([]domain.CaptionCue{}, cues...) })
}

// =============================================================================
// Helpers
// =============================================================================

func addID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func pageOf[T any](items []*T, opts repository.ListOptions) []*T {
	if opts.Offset >= len(items) {
		return []*T{}
	}
	items = items[opts.Offset:]
	if !opts.Unbounded() && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// newTestUser builds a user with a fixed creation time offset.
func newTestUser(username string, age time.Duration) *domain.User {
	u := domain.NewUser(username+"@example.com", username, "hash")
	u.CreatedAt = time.Now().UTC().Add(-age)
	return u
}

// newTestVideo builds a video owned by owner created age ago.
func newTestVideo(owner *domain.User, caption string, age time.Duration) *domain.Video {
	v := domain.NewVideo(owner, caption, "https://cdn.example.com/"+caption+".mp4", "")
	v.CreatedAt = time.Now().UTC().Add(-age)
	return v
}
