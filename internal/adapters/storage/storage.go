// Package storage provides the MinIO-backed object store for funding-dossier
// documents.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"trainhub_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DossierStore stores funding-dossier documents in a single configured bucket.
// It implements the leads service's StoragePort.
type DossierStore struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
}

// New creates the MinIO client and ensures the dossier bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*DossierStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &DossierStore{
		client:      client,
		bucket:      cfg.GetMinioBucketFundingDossiers(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *DossierStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload stores a dossier document under the given object key.
func (s *DossierStore) Upload(ctx context.Context, objectKey, contentType string, size int64, body io.Reader) error {
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return fmt.Errorf("file size %d exceeds the %d byte limit", size, s.maxFileSize)
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}
	return nil
}

// PresignedGetURL returns a short-lived download link for a stored document.
func (s *DossierStore) PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL for %s: %w", objectKey, err)
	}
	return presigned.String(), nil
}

// Delete removes a stored document.
func (s *DossierStore) Delete(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectKey, err)
	}
	return nil
}
