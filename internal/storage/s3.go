package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dropbucket/uploader/internal/config"
)

// S3Storage implements Storage with the AWS SDK upload manager, which splits
// large bodies into multipart uploads on its own.
type S3Storage struct {
	uploader *manager.Uploader
	bucket   string
}

// NewS3Storage configures an AWS SDK client with static credentials and a
// custom endpoint. Path-style addressing is forced so MinIO and other
// S3-compatible providers work without virtual-host DNS.
func NewS3Storage(ctx context.Context, cfg config.Storage) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, s3Options(cfg.Endpoint))

	if cfg.CreateBucket {
		if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
			return nil, err
		}
	}

	return NewS3StorageFromClient(client, cfg.Bucket), nil
}

// s3Options points the client at endpoint and installs the HTTP client that
// reports upload progress.
func s3Options(endpoint string) func(*s3.Options) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		// Not every S3-compatible provider accepts the SDK's default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired

		base := o.HTTPClient
		if base == nil {
			base = awshttp.NewBuildableClient()
		}
		o.HTTPClient = &progressHTTPClient{base: base}
	}
}

// NewS3StorageFromClient wraps an existing client; tests pass a fake here.
// Progress is only reported when client sends its requests through the
// HTTP client installed by NewS3Storage.
func NewS3StorageFromClient(client manager.UploadAPIClient, bucket string) *S3Storage {
	return &S3Storage{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

// Upload hands reader to the upload manager. Progress follows the request
// bodies as the HTTP transport sends them, not the manager's reads into
// part buffers.
func (s *S3Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, progress ProgressFunc) error {
	if progress != nil {
		ctx = withProgress(ctx, newProgressCounter(size, progress))
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// progressHTTPClient counts the bytes of PUT bodies (PutObject and
// UploadPart) against the counter carried by the request context.
type progressHTTPClient struct {
	base s3.HTTPClient
}

func (c *progressHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if counter := progressFrom(req.Context()); counter != nil &&
		req.Method == http.MethodPut && req.Body != nil && req.Body != http.NoBody {
		req.Body = &progressBody{ReadCloser: req.Body, c: counter}
	}
	return c.base.Do(req)
}

func ensureBucket(ctx context.Context, client *s3.Client, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return nil
}
