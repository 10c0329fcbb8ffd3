package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// LocalStorage is a Storage implementation backed by a directory on disk,
// for development and tests where standing up a real S3-compatible
// service is unwanted. Bucket lifecycle just creates/removes the root
// directory; presigned requests point at an in-process loopback URL
// rather than a real signed S3 request.
type LocalStorage struct {
	log      *zap.Logger
	rootDir  string
	publicURL string
}

// NewLocalStorage roots a LocalStorage at dir, creating the directory
// tree for bucketName under dir. publicURL is the base URL presigned
// requests are built against (e.g. a local loopback HTTP server that
// accepts the PUT/GET and forwards it into SaveFromPresigned/ReadFile).
func NewLocalStorage(log *zap.Logger, dir, bucketName, publicURL string) *LocalStorage {
	return &LocalStorage{log: log, rootDir: filepath.Join(dir, bucketName), publicURL: publicURL}
}

func (s *LocalStorage) keyPath(key string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(key))
}

func (s *LocalStorage) CreateBucket(ctx context.Context) error {
	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return docerr.Dependency("failed to create storage bucket", err)
	}
	return nil
}

func (s *LocalStorage) DeleteBucket(ctx context.Context) error {
	if err := os.RemoveAll(s.rootDir); err != nil {
		return docerr.Dependency("failed to delete storage bucket", err)
	}
	return nil
}

func (s *LocalStorage) UploadFile(ctx context.Context, key, contentType string, content []byte) error {
	path := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return docerr.Dependency("failed to store file object", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return docerr.Dependency("failed to store file object", err)
	}
	return nil
}

func (s *LocalStorage) GetFile(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, docerr.NotFound("file not found")
		}
		return nil, docerr.Dependency("failed to fetch file object", err)
	}
	return f, nil
}

func (s *LocalStorage) DeleteFile(ctx context.Context, key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return docerr.Dependency("failed to delete file object", err)
	}
	return nil
}

func (s *LocalStorage) CreatePresigned(ctx context.Context, key string, size int64) (PresignedRequest, time.Time, error) {
	expiresAt := time.Now().Add(presignedExpiry)
	return PresignedRequest{
		Method: "PUT",
		URI:    fmt.Sprintf("%s/%s", s.publicURL, key),
	}, expiresAt, nil
}

func (s *LocalStorage) CreatePresignedDownload(ctx context.Context, key string, ttl time.Duration) (PresignedRequest, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	return PresignedRequest{
		Method: "GET",
		URI:    fmt.Sprintf("%s/%s", s.publicURL, key),
	}, expiresAt, nil
}

// AddBucketNotifications is a no-op for local storage; callers instead
// use NewNotifier to watch the root directory with fsnotify.
func (s *LocalStorage) AddBucketNotifications(ctx context.Context, queueARN string) error {
	return nil
}

// SetBucketCORSOrigins is a no-op: the local backend has no origin
// concept, matching the "succeed silently" contract rule for backends
// without CORS support.
func (s *LocalStorage) SetBucketCORSOrigins(ctx context.Context, origins []string) error {
	return nil
}

// DiskUsageBytes sums the size of every object currently stored,
// recursively, for operational visibility.
func (s *LocalStorage) DiskUsageBytes() (int64, error) {
	return dirSize(s.rootDir)
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

var _ Storage = (*LocalStorage)(nil)
