package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/docerr"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s := NewLocalStorage(zap.NewNop(), t.TempDir(), "tenant-bucket", "http://localhost:8085")
	if err := s.CreateBucket(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocalStorage_roundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.UploadFile(ctx, "scope/doc.txt", "text/plain", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	body, err := s.GetFile(ctx, "scope/doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	content, err := CollectBytes(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello" {
		t.Fatalf("got %q", content)
	}

	// Overwrite semantics.
	if err := s.UploadFile(ctx, "scope/doc.txt", "text/plain", []byte("replaced")); err != nil {
		t.Fatal(err)
	}
	body, err = s.GetFile(ctx, "scope/doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	content, _ = CollectBytes(body)
	if string(content) != "replaced" {
		t.Fatalf("got %q after overwrite", content)
	}
}

func TestLocalStorage_getMissingIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetFile(context.Background(), "absent")
	if !errors.Is(err, docerr.NotFound("")) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestLocalStorage_deleteIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.UploadFile(ctx, "k", "text/plain", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteFile(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	// Deleting a missing key is success.
	if err := s.DeleteFile(ctx, "k"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
}

func TestLocalStorage_bucketLifecycleIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Creating an already-owned bucket succeeds.
	if err := s.CreateBucket(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteBucket(ctx); err != nil {
		t.Fatal(err)
	}
	// Deleting a missing bucket succeeds.
	if err := s.DeleteBucket(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStorage_presignedShapes(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	req, expires, err := s.CreatePresigned(ctx, "up/key", 42)
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != "PUT" || req.URI == "" {
		t.Fatalf("unexpected presigned request: %+v", req)
	}
	if remaining := time.Until(expires); remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Fatalf("upload expiry should be ~30m away, got %v", remaining)
	}

	dl, dlExpires, err := s.CreatePresignedDownload(ctx, "up/key", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if dl.Method != "GET" {
		t.Fatalf("unexpected download method %q", dl.Method)
	}
	if remaining := time.Until(dlExpires); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Fatalf("download expiry should honor the caller ttl, got %v", remaining)
	}
}

func TestLocalStorage_corsSucceedsSilently(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SetBucketCORSOrigins(context.Background(), []string{"https://app.example.com"}); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStorage_diskUsage(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_ = s.UploadFile(ctx, "a", "text/plain", []byte("1234"))
	_ = s.UploadFile(ctx, "nested/b", "text/plain", []byte("56"))

	usage, err := s.DiskUsageBytes()
	if err != nil {
		t.Fatal(err)
	}
	if usage != 6 {
		t.Fatalf("usage = %d, want 6", usage)
	}
}

func TestLocalFactory_forBucketIsolation(t *testing.T) {
	dir := t.TempDir()
	f := NewLocalFactory(zap.NewNop(), dir, "http://localhost:8085")
	ctx := context.Background()

	a := f.ForBucket("bucket-a")
	b := f.ForBucket("bucket-b")
	if err := a.CreateBucket(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.CreateBucket(ctx); err != nil {
		t.Fatal(err)
	}

	if err := a.UploadFile(ctx, "k", "text/plain", []byte("a-only")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetFile(ctx, "k"); err == nil {
		t.Fatal("buckets must not share objects")
	}
}
