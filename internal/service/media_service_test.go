package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/config"
)

type fakePresigner struct {
	key         string
	contentType string
	expiry      time.Duration
	err         error
}

func (f *fakePresigner) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.contentType, f.expiry = key, contentType, expiry
	return "https://bucket.example.com/" + key + "?sig=1", nil
}

func (f *fakePresigner) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestMediaService_UploadURL(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewMediaService(presigner, 20*time.Minute, zerolog.Nop())
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	out, err := svc.UploadURL(context.Background(), UploadURLInput{UserID: "u1", Kind: "video", ContentType: "video/mp4"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ObjectKey, "videos/u1/"))
	assert.Equal(t, "https://cdn.example.com/"+out.ObjectKey, out.PublicURL)
	assert.Contains(t, out.UploadURL, out.ObjectKey)
	assert.Equal(t, fixed.Add(20*time.Minute), out.ExpiresAt)
	assert.Equal(t, "video/mp4", presigner.contentType)
	assert.Equal(t, 20*time.Minute, presigner.expiry)

	out, err = svc.UploadURL(context.Background(), UploadURLInput{UserID: "u1", Kind: "thumbnail", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ObjectKey, "thumbnails/u1/"))
	assert.True(t, strings.HasSuffix(out.ObjectKey, ".jpg"))
}

func TestMediaService_Validation(t *testing.T) {
	svc := NewMediaService(&fakePresigner{}, 20*time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.UploadURL(ctx, UploadURLInput{UserID: "u1", Kind: "audio", ContentType: "audio/mpeg"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadURL(ctx, UploadURLInput{UserID: "u1", Kind: "thumbnail", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadURL(ctx, UploadURLInput{UserID: "u1", Kind: "video", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMediaService_Failures(t *testing.T) {
	ctx := context.Background()
	in := UploadURLInput{UserID: "u1", ContentType: "video/mp4"}

	_, err := NewMediaService(nil, time.Minute, zerolog.Nop()).UploadURL(ctx, in)
	assert.ErrorIs(t, err, ErrMediaDisabled)

	_, err = NewMediaService(&fakePresigner{err: errors.New("no credentials")}, time.Minute, zerolog.Nop()).UploadURL(ctx, in)
	assert.ErrorIs(t, err, ErrInternalError)
}

func TestNewMediaService_ClampsExpiry(t *testing.T) {
	assert.Equal(t, config.MinPresignExpiry, NewMediaService(nil, time.Second, zerolog.Nop()).expiry)
	assert.Equal(t, config.MaxPresignExpiry, NewMediaService(nil, 30*24*time.Hour, zerolog.Nop()).expiry)
	assert.Equal(t, time.Hour, NewMediaService(nil, time.Hour, zerolog.Nop()).expiry)
}
