// Package service provides business logic services for Reelhub.
package service

import "errors"

// Common service errors. Domain validation and not-found errors are
// returned as the domain sentinels.
var (
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a malformed request that has no domain sentinel.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMediaDisabled indicates uploads are not configured.
	ErrMediaDisabled = errors.New("media uploads are not configured")

	// ErrInternalError wraps infrastructure failures.
	ErrInternalError = errors.New("internal server error")
)
