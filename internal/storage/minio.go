package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dropbucket/uploader/internal/config"
)

// MinioStorage implements Storage using the MinIO SDK against any
// S3-compatible endpoint.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a MinIO client for cfg. When cfg.CreateBucket is
// set the bucket is created if it does not exist yet.
func NewMinioStorage(ctx context.Context, cfg config.Storage) (*MinioStorage, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket existence: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
			}
			slog.InfoContext(ctx, "storage: created bucket", "bucket", cfg.Bucket)
		}
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

// Upload streams reader to the bucket under key, reporting progress as the
// SDK consumes the body.
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, progress ProgressFunc) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if progress != nil {
		opts.Progress = newProgressCounter(size, progress)
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// splitEndpoint turns an endpoint URL into the host[:port] form minio.New
// expects and reports whether TLS should be used. A bare host is accepted and
// treated as https.
func splitEndpoint(raw string) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse storage endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("parse storage endpoint %q: missing host", raw)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("parse storage endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
}
