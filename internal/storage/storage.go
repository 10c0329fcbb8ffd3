// Package storage provides the uniform object-store contract docbox uses
// for tenant buckets, with an AWS S3 backend and a local filesystem
// emulation backend for development and tests.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedRequest is the backend-agnostic shape of a presigned operation:
// the caller issues an HTTP request with this method, URI, and headers.
type PresignedRequest struct {
	Method  string
	URI     string
	Headers map[string]string
}

// Storage is the contract every object-store backend implements. All
// operations may fail with a *docerr.Error of kind Dependency; bucket and
// key absence are folded into success per the idempotency rules below.
type Storage interface {
	// CreateBucket provisions the tenant's bucket. Idempotent: a bucket
	// already owned by the caller is treated as success.
	CreateBucket(ctx context.Context) error

	// DeleteBucket removes the tenant's bucket. Idempotent: a missing
	// bucket is treated as success.
	DeleteBucket(ctx context.Context) error

	// UploadFile writes content to key, overwriting any existing object.
	UploadFile(ctx context.Context, key, contentType string, content []byte) error

	// GetFile returns a stream of key's bytes. Callers that need the
	// full content should read it via io.ReadAll.
	GetFile(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteFile removes key. Idempotent: a missing key is success.
	DeleteFile(ctx context.Context, key string) error

	// CreatePresigned returns a presigned upload request for key, fixed
	// at a 30-minute expiry, along with that expiry.
	CreatePresigned(ctx context.Context, key string, size int64) (PresignedRequest, time.Time, error)

	// CreatePresignedDownload returns a presigned download request for
	// key with a caller-specified time to live.
	CreatePresignedDownload(ctx context.Context, key string, ttl time.Duration) (PresignedRequest, time.Time, error)

	// AddBucketNotifications configures object-created notifications to
	// be delivered to queueARN.
	AddBucketNotifications(ctx context.Context, queueARN string) error

	// SetBucketCORSOrigins sets a single PUT-method CORS rule allowing
	// origins. Backends without CORS support succeed silently.
	SetBucketCORSOrigins(ctx context.Context, origins []string) error
}

// BucketProvider resolves the Storage bound to one tenant's bucket,
// implemented by both the S3 factory and the local filesystem factory so
// the provisioner and CLI can stay backend-agnostic.
type BucketProvider interface {
	ForBucket(bucketName string) Storage
}

// CollectBytes reads a GetFile stream to completion and closes it.
func CollectBytes(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r)
}
