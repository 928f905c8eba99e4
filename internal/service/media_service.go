package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/storage"
)

// MediaService hands out presigned direct-upload URLs.
type MediaService struct {
	presigner storage.Presigner
	expiry    time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewMediaService creates a new MediaService. A nil presigner disables
// uploads. expiry is clamped to the allowed presign window.
func NewMediaService(presigner storage.Presigner, expiry time.Duration, logger zerolog.Logger) *MediaService {
	switch {
	case expiry < config.MinPresignExpiry:
		expiry = config.MinPresignExpiry
	case expiry > config.MaxPresignExpiry:
		expiry = config.MaxPresignExpiry
	}
	return &MediaService{
		presigner: presigner,
		expiry:    expiry,
		now:       time.Now,
		logger:    logger.With().Str("service", "media").Logger(),
	}
}

// UploadURLInput describes a requested upload.
type UploadURLInput struct {
	UserID      string
	Kind        string
	ContentType string
}

// UploadURLOutput contains a signed upload target.
type UploadURLOutput struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadURL signs a PUT URL for a new object owned by input.UserID.
func (s *MediaService) UploadURL(ctx context.Context, input UploadURLInput) (*UploadURLOutput, error) {
	if s.presigner == nil {
		return nil, ErrMediaDisabled
	}

	kind, err := storage.ParseKind(input.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := kind.ValidateContentType(input.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %v for %s", ErrInvalidInput, err, kind)
	}

	key, err := storage.ObjectKey(kind, input.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate object key")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	expiresAt := s.now().Add(s.expiry).UTC()
	url, err := s.presigner.PresignPut(ctx, key, input.ContentType, s.expiry)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to presign upload")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().
		Str("user_id", input.UserID).
		Str("key", key).
		Msg("upload url issued")

	return &UploadURLOutput{
		UploadURL: url,
		ObjectKey: key,
		PublicURL: s.presigner.PublicURL(key),
		ExpiresAt: expiresAt,
	}, nil
}
