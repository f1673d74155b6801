package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible)
// backend. Pointed at storage.googleapis.com it reaches Google Cloud Storage
// through the XML API with HMAC credentials — no code changes needed to move
// between GCS, MinIO, or AWS S3.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore creates the shared object store client. One stateless
// instance is constructed at process start and passed explicitly to every
// pipeline invocation. Buckets are named by the request locators, so unlike
// a single-bucket setup there is nothing to create or apply policy to here.
func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// Fetch downloads the object at loc into destPath.
func (s *MinioStore) Fetch(ctx context.Context, loc Locator, destPath string) error {
	if err := s.client.FGetObject(ctx, loc.Bucket, loc.Key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("get object %s: %w", loc, err)
	}
	return nil
}

// Publish uploads srcPath to loc, creating or overwriting the remote object.
func (s *MinioStore) Publish(ctx context.Context, srcPath string, loc Locator, contentType string) error {
	_, err := s.client.FPutObject(ctx, loc.Bucket, loc.Key, srcPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", loc, err)
	}
	return nil
}
