package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// userRepository implements repository.UserRepository for MongoDB.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new MongoDB user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user document.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}

	if _, err := r.db.users().InsertOne(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: username or email already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": domain.NormalizeUsername(username)})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.db.users().FindOne(ctx, filter).Decode(&user); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	normalizeUser(&user)
	return &user, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.db.users().CountDocuments(ctx, bson.M{"email": domain.NormalizeEmail(email)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return n > 0, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.db.users().CountDocuments(ctx, bson.M{"username": domain.NormalizeUsername(username)}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return n > 0, nil
}

// Update persists the mutable profile fields.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.users().UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"username":       user.Username,
		"profilePicture": user.ProfilePicture,
		"bio":            user.Bio,
		"updatedAt":      user.UpdatedAt,
	}})
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: username already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateStats persists the cached aggregate counters.
func (r *userRepository) UpdateStats(ctx context.Context, id string, stats domain.UserStats) error {
	res, err := r.db.users().UpdateByID(ctx, id, bson.M{"$set": bson.M{"stats": stats}})
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns users with pagination, newest first.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	total, err := r.db.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	users, err := r.find(ctx, bson.M{}, findOptions(opts, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
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

// SetFollow adds or removes the follow edge on both documents in one transaction.
func (r *userRepository) SetFollow(ctx context.Context, followerID, followeeID string, follow bool) error {
	if followerID == followeeID {
		return domain.ErrSelfFollow
	}

	op := "$addToSet"
	if !follow {
		op = "$pull"
	}

	return r.db.WithTx(ctx, func(sc mongo.SessionContext) error {
		now := time.Now().UTC()

		res, err := r.db.users().UpdateByID(sc, followerID, bson.M{
			op:     bson.M{"following": followeeID},
			"$set": bson.M{"updatedAt": now},
		})
		if err != nil {
			return fmt.Errorf("failed to update follower: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound
		}

		res, err = r.db.users().UpdateByID(sc, followeeID, bson.M{
			op:     bson.M{"followers": followerID},
			"$set": bson.M{"updatedAt": now},
		})
		if err != nil {
			return fmt.Errorf("failed to update followee: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

// ListFollowers returns the users following userID, newest edge first.
func (r *userRepository) ListFollowers(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := r.byIDs(ctx, page(newestFirst(user.Followers), opts))
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return users, nil
}

// ListFollowing returns the users userID follows, newest edge first.
func (r *userRepository) ListFollowing(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.User, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := r.byIDs(ctx, page(newestFirst(user.Following), opts))
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return users, nil
}

// ListWithLegacyBookmarks returns users that still carry legacy bookmarks.
func (r *userRepository) ListWithLegacyBookmarks(ctx context.Context) ([]*domain.User, error) {
	users, err := r.find(ctx,
		bson.M{"bookmarks.0": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with legacy bookmarks: %w", err)
	}
	return users, nil
}

// ClearLegacyBookmarks empties the legacy bookmark list of a user.
func (r *userRepository) ClearLegacyBookmarks(ctx context.Context, userID string) error {
	if _, err := r.db.users().UpdateByID(ctx, userID, bson.M{"$unset": bson.M{"bookmarks": ""}}); err != nil {
		return fmt.Errorf("failed to clear legacy bookmarks: %w", err)
	}
	return nil
}

// byIDs loads users and returns them in the order of ids. Dangling ids are skipped.
func (r *userRepository) byIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	found, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *userRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.User, error) {
	cursor, err := r.db.users().Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range users {
		normalizeUser(u)
	}
	return users, nil
}

func normalizeUser(u *domain.User) {
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
}

// newestFirst returns a reversed copy of an append-ordered edge list.
func newestFirst(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
