package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"study-backend/internal/shared/storage/object"
	"study-backend/internal/shared/telemetry"
)

// Options configures an S3-compatible MinIO endpoint.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements ObjectStore on a MinIO bucket.
type Store struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO and creates the bucket when missing.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Endpoint) == "" || strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := miniogo.New(opts.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", opts.Bucket, err)
		}
		telemetry.Info("store.bucket_created", map[string]any{"bucket": opts.Bucket, "endpoint": opts.Endpoint})
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

func (s *Store) Save(ctx context.Context, namespace string, fileName string, r io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}
	key, err := object.NewKey(namespace, fileName)
	if err != nil {
		return "", 0, "", err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}

	// Size -1 lets the client switch to multipart for large uploads.
	info, err := s.client.PutObject(ctx, s.bucket, key, body, -1, miniogo.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("minio put %s/%s: %w", s.bucket, key, err)
	}
	return key, info.Size, mimeType, nil
}

func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := object.CheckKey(storageKey); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s/%s: %w", s.bucket, storageKey, err)
	}
	// GetObject is lazy; Stat surfaces missing keys before the caller starts streaming.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("minio stat %s/%s: %w", s.bucket, storageKey, err)
	}
	return obj, nil
}

var _ object.ObjectStore = (*Store)(nil)
