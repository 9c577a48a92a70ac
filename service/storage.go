package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
)

// StorageService wraps the MinIO client for document storage. Uploads never
// pass through the API server: clients receive a presigned PUT URL and write
// the bytes directly.
type StorageService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewStorageService(cfg *config.MinioConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &StorageService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// PresignedUploadURL generates a short-lived URL authorizing a direct PUT of
// the document bytes.
func (s *StorageService) PresignedUploadURL(ctx context.Context, objectName string) (string, error) {
	expiry := time.Duration(s.config.UploadExpiryMinutes) * time.Minute
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return u.String(), nil
}

// PresignedViewURL generates a time-limited read URL for a stored document.
func (s *StorageService) PresignedViewURL(ctx context.Context, objectName string) (string, error) {
	expiry := time.Duration(s.config.ViewExpiryMinutes) * time.Minute
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate view URL: %w", err)
	}
	return u.String(), nil
}

// FetchObject opens a stored document for reading.
func (s *StorageService) FetchObject(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}
	return obj, nil
}

// ListenForUploads subscribes to bucket notifications and emits the object
// key of every document created under prefix. The channel closes when ctx
// is cancelled.
func (s *StorageService) ListenForUploads(ctx context.Context, prefix string) <-chan string {
	keys := make(chan string)

	events := s.client.ListenBucketNotification(ctx, s.bucket, prefix, "", []string{
		"s3:ObjectCreated:*",
	})

	go func() {
		defer close(keys)
		for info := range events {
			if info.Err != nil {
				slog.Error("bucket notification error", "error", info.Err)
				continue
			}
			for _, record := range info.Records {
				// Object keys arrive URL-encoded in notification records
				key, err := url.QueryUnescape(record.S3.Object.Key)
				if err != nil {
					slog.Warn("skipping undecodable object key",
						"key", record.S3.Object.Key, "error", err)
					continue
				}
				select {
				case keys <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return keys
}
