// Package domain contains the core business entities for Reelhub.
// These are pure Go structs with no storage dependencies, representing
// the accounts, videos and engagement records of the platform.
package domain

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Username constraints.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	BioMaxLength      = 160
	PasswordMinLength = 6
	PasswordMaxLength = 72 // bcrypt input limit in bytes
)

// usernameRegex allows lowercase letters, digits and underscores only.
var usernameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

// UserStats holds the cached aggregate counters of a user.
type UserStats struct {
	// Posts is the number of videos the user has published.
	Posts int64 `json:"posts" bson:"posts"`

	// Likes is the sum of likes across the user's videos.
	Likes int64 `json:"likes" bson:"likes"`

	// Comments is the sum of comments across the user's videos.
	Comments int64 `json:"comments" bson:"comments"`

	// Views is a placeholder; view tracking does not exist yet.
	Views int64 `json:"views" bson:"views"`
}

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID string).
	ID string `json:"id" bson:"_id"`

	// Email is the unique, lowercased email address.
	Email string `json:"email" bson:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-" bson:"passwordHash"`

	// Username is the unique handle.
	// Constraints: 3-30 characters of [a-z0-9_].
	Username string `json:"username" bson:"username"`

	// ProfilePicture is an optional media URL.
	ProfilePicture string `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`

	// Bio is an optional short biography.
	Bio string `json:"bio,omitempty" bson:"bio,omitempty"`

	// Followers holds the ids of users following this user.
	Followers []string `json:"followers" bson:"followers"`

	// Following holds the ids of users this user follows.
	Following []string `json:"following" bson:"following"`

	// LegacyBookmarks is the per-account bookmark list that predates
	// Video.Bookmarks. It is read during reconciliation and cleared by the
	// backfill job.
	LegacyBookmarks []string `json:"-" bson:"bookmarks,omitempty"`

	// Stats holds cached aggregate counters.
	Stats UserStats `json:"stats" bson:"stats"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewUser creates a new User with a fresh id and empty edge sets.
func NewUser(email, username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		Username:     NormalizeUsername(username),
		PasswordHash: passwordHash,
		Followers:    []string{},
		Following:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsFollowing reports whether u follows the user with the given id.
func (u *User) IsFollowing(userID string) bool {
	return contains(u.Following, userID)
}

// FollowersCount returns the number of followers.
func (u *User) FollowersCount() int {
	return len(u.Followers)
}

// FollowingCount returns the number of followed users.
func (u *User) FollowingCount() int {
	return len(u.Following)
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		Stats:          u.Stats,
		CreatedAt:      u.CreatedAt,
	}
}

// Profile is the publicly visible part of a user record.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	Stats          UserStats `json:"stats"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks a raw username as submitted by a client.
// Uppercase input is rejected rather than silently folded.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	if len([]rune(password)) < PasswordMinLength || len(password) > PasswordMaxLength {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateEmail checks that email is a bare RFC 5322 address with a dotted domain.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	if !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateBio checks the bio length.
func ValidateBio(bio string) error {
	if len([]rune(bio)) > BioMaxLength {
		return ErrBioTooLong
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
