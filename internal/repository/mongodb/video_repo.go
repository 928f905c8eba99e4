package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
)

// newestFirstSort orders videos by creation time, newest first.
var newestFirstSort = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// videoRepository implements repository.VideoRepository for MongoDB.
type videoRepository struct {
	db *DB
}

// NewVideoRepository creates a new MongoDB video repository.
func NewVideoRepository(db *DB) repository.VideoRepository {
	return &videoRepository{db: db}
}

// Create inserts a new video document.
func (r *videoRepository) Create(ctx context.Context, video *domain.Video) error {
	normalizeVideo(video)
	if _, err := r.db.videos().InsertOne(ctx, video); err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetByID retrieves a video by ID.
func (r *videoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.videos().FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	normalizeVideo(&video)
	return &video, nil
}

// List returns all videos, newest first.
func (r *videoRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Video, error) {
	videos, err := r.find(ctx, bson.M{}, findOptions(opts, newestFirstSort))
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// ListByUser returns the videos authored by userID, newest first.
func (r *videoRepository) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*domain.Video, error) {
	videos, err := r.find(ctx, bson.M{"userId": userID}, findOptions(opts, newestFirstSort))
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
	videos, err := r.find(ctx, bson.M{"userId": bson.M{"$in": userIDs}}, findOptions(opts, newestFirstSort))
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
	videos, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(newestFirstSort))
	if err != nil {
		return nil, fmt.Errorf("failed to list videos by ids: %w", err)
	}
	return videos, nil
}

// ListBookmarkedBy returns the videos bookmarked by userID, newest first.
func (r *videoRepository) ListBookmarkedBy(ctx context.Context, userID string) ([]*domain.Video, error) {
	videos, err := r.find(ctx, bson.M{"bookmarks": userID}, options.Find().SetSort(newestFirstSort))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarked videos: %w", err)
	}
	return videos, nil
}

// AddLike adds userID to the likes set.
func (r *videoRepository) AddLike(ctx context.Context, videoID, userID string) error {
	return r.update(ctx, videoID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

// RemoveLike removes userID from the likes set.
func (r *videoRepository) RemoveLike(ctx context.Context, videoID, userID string) error {
	return r.update(ctx, videoID, bson.M{"$pull": bson.M{"likes": userID}})
}

// AddBookmark adds userID to the bookmarks set.
func (r *videoRepository) AddBookmark(ctx context.Context, videoID, userID string) error {
	return r.update(ctx, videoID, bson.M{"$addToSet": bson.M{"bookmarks": userID}})
}

// RemoveBookmark removes userID from the bookmarks set.
func (r *videoRepository) RemoveBookmark(ctx context.Context, videoID, userID string) error {
	return r.update(ctx, videoID, bson.M{"$pull": bson.M{"bookmarks": userID}})
}

// AppendComment appends a comment to the video.
func (r *videoRepository) AppendComment(ctx context.Context, videoID string, comment *domain.Comment) error {
	return r.update(ctx, videoID, bson.M{"$push": bson.M{"comments": comment}})
}

// ReplaceCaptions replaces the caption cue list.
func (r *videoRepository) ReplaceCaptions(ctx context.Context, videoID string, cues []domain.CaptionCue) error {
	if cues == nil {
		cues = []domain.CaptionCue{}
	}
	return r.update(ctx, videoID, bson.M{"$set": bson.M{"captions": cues}})
}

// update applies a single-document field update and bumps updatedAt.
// Single-document updates are atomic, so no transaction is needed.
func (r *videoRepository) update(ctx context.Context, videoID string, change bson.M) error {
	set, _ := change["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	change["$set"] = set

	res, err := r.db.videos().UpdateByID(ctx, videoID, change)
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", videoID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrVideoNotFound
	}
	return nil
}

func (r *videoRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Video, error) {
	cursor, err := r.db.videos().Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	videos := make([]*domain.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}
	for _, v := range videos {
		normalizeVideo(v)
	}
	return videos, nil
}

func normalizeVideo(v *domain.Video) {
	if v.Likes == nil {
		v.Likes = []string{}
	}
	if v.Comments == nil {
		v.Comments = []domain.Comment{}
	}
	if v.Captions == nil {
		v.Captions = []domain.CaptionCue{}
	}
	if v.Bookmarks == nil {
		v.Bookmarks = []string{}
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
}

// Ensure videoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*videoRepository)(nil)
