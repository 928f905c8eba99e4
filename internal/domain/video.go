// Package domain contains the core business entities for Reelhub.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content limits.
const (
	CaptionMaxLength = 2000
	CommentMaxLength = 500
)

// Video represents an uploaded short video and its engagement state.
type Video struct {
	// ID is the unique identifier for the video (UUID string).
	ID string `json:"id" bson:"_id"`

	// Caption is the free-form description shown under the video.
	Caption string `json:"caption" bson:"caption"`

	// VideoURL points to the media asset in the object store.
	VideoURL string `json:"videoUrl" bson:"videoUrl"`

	// ThumbnailURL points to the poster image.
	ThumbnailURL string `json:"thumbnailUrl" bson:"thumbnailUrl"`

	// UserID is the owning user. UserEmail and Username are denormalized
	// copies taken at upload time.
	UserID    string `json:"userId" bson:"userId"`
	UserEmail string `json:"userEmail" bson:"userEmail"`
	Username  string `json:"username" bson:"username"`

	// Likes holds the ids of users who liked the video.
	Likes []string `json:"likes" bson:"likes"`

	// Comments is append-only, oldest first.
	Comments []Comment `json:"comments" bson:"comments"`

	// Captions are subtitle cues, ordered by start time as submitted.
	Captions []CaptionCue `json:"captions" bson:"captions"`

	// Bookmarks holds the ids of users who bookmarked the video.
	Bookmarks []string `json:"bookmarks" bson:"bookmarks"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewVideo creates a new Video owned by the given user.
func NewVideo(owner *User, caption, videoURL, thumbnailURL string) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:           uuid.NewString(),
		Caption:      caption,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		UserID:       owner.ID,
		UserEmail:    owner.Email,
		Username:     owner.Username,
		Likes:        []string{},
		Comments:     []Comment{},
		Captions:     []CaptionCue{},
		Bookmarks:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLikedBy reports whether userID is in the likes set.
func (v *Video) IsLikedBy(userID string) bool {
	return contains(v.Likes, userID)
}

// IsBookmarkedBy reports whether userID is in the bookmarks set.
func (v *Video) IsBookmarkedBy(userID string) bool {
	return contains(v.Bookmarks, userID)
}

// IsOwnedBy reports whether userID owns the video.
func (v *Video) IsOwnedBy(userID string) bool {
	return v.UserID == userID
}

// LikesCount returns the number of distinct likes.
func (v *Video) LikesCount() int {
	return len(v.Likes)
}

// Comment is an immutable remark attached to a video.
type Comment struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"userId"`
	UserEmail string    `json:"userEmail" bson:"userEmail"`
	Username  string    `json:"username" bson:"username"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewComment builds a comment from raw text. The text is trimmed and
// validated; the timestamp is assigned here, never by the client.
func NewComment(author *User, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if len([]rune(text)) > CommentMaxLength {
		return nil, ErrCommentTooLong
	}
	return &Comment{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		UserEmail: author.Email,
		Username:  author.Username,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CaptionCue is a single subtitle entry. Times are in seconds.
type CaptionCue struct {
	Text      string  `json:"text" bson:"text"`
	StartTime float64 `json:"startTime" bson:"startTime"`
	EndTime   float64 `json:"endTime" bson:"endTime"`
}

// ValidateCaptions checks every cue of a caption track.
func ValidateCaptions(cues []CaptionCue) error {
	for i, cue := range cues {
		if strings.TrimSpace(cue.Text) == "" {
			return NewDomainError(ErrInvalidCaption, "cue text is empty", cueResource(i))
		}
		if cue.StartTime < 0 || cue.EndTime < cue.StartTime {
			return NewDomainError(ErrInvalidCaption, "cue times out of order", cueResource(i))
		}
	}
	return nil
}

// ValidateCaption checks the video caption length.
func ValidateCaption(caption string) error {
	if len([]rune(caption)) > CaptionMaxLength {
		return ErrCaptionTooLong
	}
	return nil
}

// ResolveCaption picks the caption of a new video. An explicit caption wins;
// otherwise title and description are joined by a blank line.
func ResolveCaption(caption, title, description string) string {
	if c := strings.TrimSpace(caption); c != "" {
		return c
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return description
	case description == "":
		return title
	default:
		return title + "\n\n" + description
	}
}

func cueResource(i int) string {
	return "captions[" + strconv.Itoa(i) + "]"
}
