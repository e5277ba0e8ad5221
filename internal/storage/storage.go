// Package storage defines the interface for object storage uploads.
// Two S3-compatible drivers are provided: MinIO's SDK and the AWS SDK's
// upload manager. Both work against MinIO, AWS S3 or any compatible provider.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dropbucket/uploader/internal/config"
)

// ProgressFunc receives (loaded, total) byte counts while a transfer is in
// flight. It may be nil.
type ProgressFunc func(loaded, total int64)

// Storage transfers object bytes to a bucket.
type Storage interface {
	// Upload streams reader to the configured bucket under key. size must be
	// the exact byte count of reader.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, progress ProgressFunc) error
}

// ErrMissingConfig is returned when required storage settings are empty.
var ErrMissingConfig = errors.New("storage configuration incomplete")

// ErrUnknownDriver is returned for an unrecognised STORAGE_DRIVER value.
var ErrUnknownDriver = errors.New("unknown storage driver")

// New builds the driver selected by cfg.Driver. It fails with
// ErrMissingConfig before contacting anything if a required setting is empty.
func New(ctx context.Context, cfg config.Storage) (Storage, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	switch cfg.Driver {
	case config.DriverMinio, "":
		return NewMinioStorage(ctx, cfg)
	case config.DriverS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
