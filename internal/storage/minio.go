package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/prn-tf/reelhub/internal/config"
)

// minioAPI is the subset of *minio.Client used here; tests substitute a fake.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

// MinioPresigner presigns uploads against a MinIO server.
type MinioPresigner struct {
	api        minioAPI
	bucket     string
	publicBase string
}

// NewMinioPresigner connects to MinIO and makes sure the bucket exists.
func NewMinioPresigner(ctx context.Context, cfg config.StorageConfig) (*MinioPresigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	base := publicBase(cfg.PublicBaseURL, cfg.Endpoint, cfg.Bucket, cfg.UseSSL)
	return newMinioPresigner(ctx, client, cfg.Bucket, cfg.Region, base)
}

func newMinioPresigner(ctx context.Context, api minioAPI, bucket, region, base string) (*MinioPresigner, error) {
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return &MinioPresigner{
		api:        api,
		bucket:     bucket,
		publicBase: base,
	}, nil
}

// PresignPut returns a presigned PUT URL for key. MinIO does not sign the
// content type, so contentType is only validated by the caller.
func (p *MinioPresigner) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	u, err := p.api.PresignedPutObject(ctx, p.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign minio upload: %w", err)
	}
	return u.String(), nil
}

// PublicURL returns the URL the object will be served from.
func (p *MinioPresigner) PublicURL(key string) string {
	return JoinURL(p.publicBase, key)
}

// Ensure MinioPresigner implements Presigner.
var _ Presigner = (*MinioPresigner)(nil)
