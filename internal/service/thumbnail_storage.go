package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const thumbnailPathPrefix = "thumbnails"

var (
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload thumbnail")
	ErrDeleteFailed         = errors.New("failed to delete thumbnail")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")
)

// ThumbnailStore mirrors product thumbnails into object storage.
type ThumbnailStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
	Delete(ctx context.Context, objectKey string) error
	PresignedURL(ctx context.Context, objectKey string) (string, error)
}

// ThumbnailObjectKey returns the object key for a product thumbnail file.
func ThumbnailObjectKey(productID uint, fileName string) string {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" || strings.Contains(fileName, "/") || strings.Contains(fileName, "..") {
		return ""
	}
	return fmt.Sprintf("%s/product-%d/%s", thumbnailPathPrefix, productID, fileName)
}

type MinIOThumbnailStore struct {
	client     *minio.Client
	bucketName string
	presignTTL time.Duration
	initOnce   sync.Once
	initErr    error
}

// NewMinIOThumbnailStore creates the client only; the bucket is ensured on first use.
func NewMinIOThumbnailStore(endpoint, accessKey, secretKey, bucketName string, useSSL bool, presignTTL time.Duration) (*MinIOThumbnailStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &MinIOThumbnailStore{
		client:     client,
		bucketName: bucketName,
		presignTTL: presignTTL,
	}, nil
}

func (s *MinIOThumbnailStore) BucketName() string {
	return s.bucketName
}

func (s *MinIOThumbnailStore) Client() *minio.Client {
	return s.client
}

func (s *MinIOThumbnailStore) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.ensureBucketExists(ctx)
	})
	return s.initErr
}

func (s *MinIOThumbnailStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}
	return nil
}

func (s *MinIOThumbnailStore) Put(ctx context.Context, objectKey string, data []byte, contentType string) error {
	if objectKey == "" {
		return fmt.Errorf("%w: empty object key", ErrUploadFailed)
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

func (s *MinIOThumbnailStore) Delete(ctx context.Context, objectKey string) error {
	if objectKey == "" {
		return nil
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

func (s *MinIOThumbnailStore) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, s.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}
	return u.String(), nil
}
