// Package domain contains the core business entities for Reelhub.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username/email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidUsername indicates the username violates the naming rules.
	ErrInvalidUsername = errors.New("username must be 3-30 characters of lowercase letters, numbers and underscores")

	// ErrInvalidEmail indicates the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword indicates the password is too short.
	ErrInvalidPassword = errors.New("password must be at least 6 characters")

	// ErrBioTooLong indicates the bio exceeds its maximum length.
	ErrBioTooLong = errors.New("bio exceeds maximum length of 160 characters")

	// ===========================================
	// Social Graph Errors
	// ===========================================

	// ErrSelfFollow indicates a user attempted to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")

	// ===========================================
	// Video Errors
	// ===========================================

	// ErrVideoNotFound indicates the requested video does not exist.
	ErrVideoNotFound = errors.New("video not found")

	// ErrVideoURLRequired indicates a video was submitted without media.
	ErrVideoURLRequired = errors.New("video URL is required")

	// ErrCaptionTooLong indicates the caption exceeds its maximum length.
	ErrCaptionTooLong = errors.New("caption exceeds maximum length of 2000 characters")

	// ErrInvalidCaption indicates a subtitle cue is malformed.
	ErrInvalidCaption = errors.New("invalid caption cue")

	// ErrNotVideoOwner indicates the caller does not own the video.
	ErrNotVideoOwner = errors.New("only the video owner can do this")

	// ===========================================
	// Comment Errors
	// ===========================================

	// ErrEmptyComment indicates the comment text is empty after trimming.
	ErrEmptyComment = errors.New("comment text is required")

	// ErrCommentTooLong indicates the comment exceeds its maximum length.
	ErrCommentTooLong = errors.New("comment exceeds maximum length of 500 characters")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., video id, cue index).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrUserAlreadyExists,
	ErrInvalidUsername,
	ErrInvalidEmail,
	ErrInvalidPassword,
	ErrBioTooLong,
	ErrSelfFollow,
	ErrVideoURLRequired,
	ErrCaptionTooLong,
	ErrInvalidCaption,
	ErrEmptyComment,
	ErrCommentTooLong,
}

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrVideoNotFound)
}
