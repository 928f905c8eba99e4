package storage

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/reelhub/internal/config"
)

// =============================================================================
// Keys and URLs
// =============================================================================

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey(KindVideo, "u1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^videos/u1/[a-z0-9]{24}$`), key)

	key, err = ObjectKey(KindThumbnail, "u1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^thumbnails/u1/[a-z0-9]{24}\.jpg$`), key)

	a, _ := ObjectKey(KindVideo, "u1")
	b, _ := ObjectKey(KindVideo, "u1")
	assert.NotEqual(t, a, b)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"video", KindVideo, false},
		{"", KindVideo, false},
		{" Thumbnail ", KindThumbnail, false},
		{"audio", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidKind, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestKind_ValidateContentType(t *testing.T) {
	assert.NoError(t, KindVideo.ValidateContentType("video/mp4"))
	assert.NoError(t, KindVideo.ValidateContentType("Video/QuickTime"))
	assert.ErrorIs(t, KindVideo.ValidateContentType("image/jpeg"), ErrInvalidContentType)
	assert.NoError(t, KindThumbnail.ValidateContentType("image/jpeg"))
	assert.ErrorIs(t, KindThumbnail.ValidateContentType("image/png"), ErrInvalidContentType)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/videos/u1/abc", JoinURL("https://cdn.example.com/", "videos/u1/abc"))
	assert.Equal(t, "https://cdn.example.com/videos/a%20b/c", JoinURL("https://cdn.example.com", "videos/a b/c"))
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBase("https://cdn.example.com", "minio:9000", "media", false))
	assert.Equal(t, "http://minio:9000/media", publicBase("", "minio:9000", "media", false))
	assert.Equal(t, "https://minio:9000/media", publicBase("", "minio:9000", "media", true))
	assert.Equal(t, "https://r2.example.com/media", publicBase("", "https://r2.example.com/", "media", false))
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: config.StorageNone})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}

// =============================================================================
// S3
// =============================================================================

func TestS3Presigner_PresignPut(t *testing.T) {
	ctx := context.Background()
	p, err := NewS3Presigner(ctx, config.StorageConfig{
		Backend:         config.StorageS3,
		Endpoint:        "http://localhost:9000",
		Region:          "auto",
		Bucket:          "media",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	raw, err := p.PresignPut(ctx, "videos/u1/abc", "video/mp4", 20*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/media/videos/u1/abc", u.Path)
	assert.Equal(t, "1200", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	assert.Equal(t, "http://localhost:9000/media/videos/u1/abc", p.PublicURL("videos/u1/abc"))
}

// =============================================================================
// MinIO
// =============================================================================

type fakeMinio struct {
	exists     bool
	existsErr  error
	made       []string
	presignErr error
	lastExpiry time.Duration
}

func (f *fakeMinio) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeMinio) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeMinio) PresignedPutObject(ctx context.Context, bucket, object string, expires time.Duration) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.lastExpiry = expires
	return url.Parse("http://minio:9000/" + bucket + "/" + object + "?X-Amz-Signature=sig")
}

func TestMinioPresigner_CreatesMissingBucket(t *testing.T) {
	api := &fakeMinio{}
	_, err := newMinioPresigner(context.Background(), api, "media", "", "http://minio:9000/media")
	require.NoError(t, err)
	assert.Equal(t, []string{"media"}, api.made)

	api = &fakeMinio{exists: true}
	_, err = newMinioPresigner(context.Background(), api, "media", "", "http://minio:9000/media")
	require.NoError(t, err)
	assert.Empty(t, api.made)
}

func TestMinioPresigner_BucketCheckError(t *testing.T) {
	api := &fakeMinio{existsErr: errors.New("connection refused")}
	_, err := newMinioPresigner(context.Background(), api, "media", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check bucket media")
}

func TestMinioPresigner_PresignPut(t *testing.T) {
	api := &fakeMinio{exists: true}
	p, err := newMinioPresigner(context.Background(), api, "media", "", "http://minio:9000/media")
	require.NoError(t, err)

	raw, err := p.PresignPut(context.Background(), "thumbnails/u1/x.jpg", "image/jpeg", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://minio:9000/media/thumbnails/u1/x.jpg"))
	assert.Equal(t, 5*time.Minute, api.lastExpiry)
	assert.Equal(t, "http://minio:9000/media/thumbnails/u1/x.jpg", p.PublicURL("thumbnails/u1/x.jpg"))

	api.presignErr = errors.New("boom")
	_, err = p.PresignPut(context.Background(), "k", "", time.Minute)
	assert.Error(t, err)
}
