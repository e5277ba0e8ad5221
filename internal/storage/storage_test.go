package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropbucket/uploader/internal/config"
)

func validConfig(driver string) config.Storage {
	return config.Storage{
		Driver:    driver,
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "uploads",
	}
}

func TestNewMissingConfig(t *testing.T) {
	cfg := validConfig(config.DriverMinio)
	cfg.SecretKey = ""
	cfg.Bucket = ""

	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "STORAGE_SECRET_KEY, STORAGE_BUCKET")
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), validConfig("ftp"))
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, validConfig(config.DriverMinio))
	require.NoError(t, err)
	assert.IsType(t, &MinioStorage{}, s)

	s, err = New(ctx, validConfig(""))
	require.NoError(t, err)
	assert.IsType(t, &MinioStorage{}, s)

	s, err = New(ctx, validConfig(config.DriverS3))
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		host       string
		secure     bool
		shouldFail bool
	}{
		{in: "http://localhost:9000", host: "localhost:9000"},
		{in: "https://s3.amazonaws.com", host: "s3.amazonaws.com", secure: true},
		{in: "minio.internal:9000", host: "minio.internal:9000", secure: true},
		{in: "ftp://files.example.com", shouldFail: true},
		{in: "http://", shouldFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.in)
			if tt.shouldFail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}
