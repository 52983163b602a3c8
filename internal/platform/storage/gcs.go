package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore issues V4 signed URLs for, and deletes, objects in a single bucket.
type GCSStore struct {
	client     *storage.Client
	bucketName string
	urlTTL     time.Duration
}

func NewGCSStore(ctx context.Context, bucketName, credentialsFile string, urlTTL time.Duration) (*GCSStore, error) {
	if bucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStore{client: client, bucketName: bucketName, urlTTL: urlTTL}, nil
}

func (s *GCSStore) SignedUploadURL(ctx context.Context, key, contentType string) (string, error) {
	url, err := s.client.Bucket(s.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(s.urlTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign upload URL for %s: %w", key, err)
	}
	return url, nil
}

func (s *GCSStore) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	url, err := s.client.Bucket(s.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.urlTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL for %s: %w", key, err)
	}
	return url, nil
}

// Delete removes an object. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucketName).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucketName, key, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	if err := s.client.Close(); err != nil {
		slog.Warn("failed to close GCS client", "error", err)
		return err
	}
	return nil
}
