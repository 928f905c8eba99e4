// Package storage issues presigned upload URLs for media objects.
// Clients push video and thumbnail bytes straight to the object store;
// the service only hands out short-lived signed PUT URLs and the
// public URL the object will be served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prn-tf/reelhub/internal/config"
)

// Storage errors.
var (
	// ErrDisabled indicates no media backend is configured.
	ErrDisabled = errors.New("media storage is disabled")

	// ErrInvalidKind indicates an unknown upload kind.
	ErrInvalidKind = errors.New("invalid upload kind")

	// ErrInvalidContentType indicates a content type that does not match the kind.
	ErrInvalidContentType = errors.New("invalid content type")
)

// Presigner signs direct-to-bucket uploads.
type Presigner interface {
	// PresignPut returns a URL that accepts a single PUT of key until expiry.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)

	// PublicURL returns the URL the object will be served from.
	PublicURL(key string) string
}

// New creates the Presigner for the configured backend.
// It returns ErrDisabled when the backend is "none".
func New(ctx context.Context, cfg config.StorageConfig) (Presigner, error) {
	switch cfg.Backend {
	case config.StorageS3:
		return NewS3Presigner(ctx, cfg)
	case config.StorageMinio:
		return NewMinioPresigner(ctx, cfg)
	case config.StorageNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
