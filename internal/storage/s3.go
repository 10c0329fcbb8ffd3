package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// presignedExpiry is the fixed expiry docbox applies to every presigned
// upload request, regardless of caller-supplied hints.
const presignedExpiry = 30 * time.Minute

// S3Client is the subset of the S3 SDK client docbox uses, narrowed so
// tests can supply a stub.
type S3Client interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutBucketNotificationConfiguration(ctx context.Context, params *s3.PutBucketNotificationConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error)
	PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error)
}

// Presigner is the subset of the S3 presign client docbox uses, satisfied
// by *s3.PresignClient.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage is the Storage implementation backed by AWS S3 (or an
// S3-compatible custom endpoint).
type S3Storage struct {
	log        *zap.Logger
	client     S3Client
	presigner  Presigner
	bucketName string
}

// NewS3Storage builds an S3-backed Storage for one tenant bucket.
func NewS3Storage(log *zap.Logger, client S3Client, presigner Presigner, bucketName string) *S3Storage {
	return &S3Storage{log: log, client: client, presigner: presigner, bucketName: bucketName}
}

func (s *S3Storage) CreateBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucketName)})
	if err == nil {
		return nil
	}
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return docerr.Dependency("failed to create storage bucket", err)
}

func (s *S3Storage) DeleteBucket(ctx context.Context) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(s.bucketName)})
	if err == nil {
		return nil
	}
	var notFound *types.NoSuchBucket
	if errors.As(err, &notFound) {
		return nil
	}
	return docerr.Dependency("failed to delete storage bucket", err)
}

func (s *S3Storage) UploadFile(ctx context.Context, key, contentType string, content []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return docerr.Dependency("failed to store file object", err)
	}
	return nil
}

func (s *S3Storage) GetFile(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, docerr.NotFound("file not found")
		}
		return nil, docerr.Dependency("failed to fetch file object", err)
	}
	return out.Body, nil
}

func (s *S3Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return docerr.Dependency("failed to delete file object", err)
	}
	return nil
}

func (s *S3Storage) CreatePresigned(ctx context.Context, key string, size int64) (PresignedRequest, time.Time, error) {
	expiresAt := time.Now().Add(presignedExpiry)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentLength: aws.Int64(size),
	}, func(o *s3.PresignOptions) { o.Expires = presignedExpiry })
	if err != nil {
		return PresignedRequest{}, time.Time{}, docerr.Dependency("failed to create presigned upload", err)
	}
	return PresignedRequest{Method: req.Method, URI: req.URL, Headers: map[string]string{}}, expiresAt, nil
}

func (s *S3Storage) CreatePresignedDownload(ctx context.Context, key string, ttl time.Duration) (PresignedRequest, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return PresignedRequest{}, time.Time{}, docerr.Dependency("failed to create presigned download", err)
	}
	return PresignedRequest{Method: req.Method, URI: req.URL, Headers: map[string]string{}}, expiresAt, nil
}

func (s *S3Storage) AddBucketNotifications(ctx context.Context, queueARN string) error {
	_, err := s.client.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(s.bucketName),
		NotificationConfiguration: &types.NotificationConfiguration{
			QueueConfigurations: []types.QueueConfiguration{
				{
					QueueArn: aws.String(queueARN),
					Events:   []types.Event{types.EventS3ObjectCreated},
				},
			},
		},
	})
	if err != nil {
		return docerr.Dependency("failed to add bucket notification queue", err)
	}
	return nil
}

func (s *S3Storage) SetBucketCORSOrigins(ctx context.Context, origins []string) error {
	_, err := s.client.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket: aws.String(s.bucketName),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{
				{
					AllowedMethods: []string{"PUT"},
					AllowedOrigins: origins,
					AllowedHeaders: []string{"*"},
				},
			},
		},
	})
	if err != nil {
		s.log.Warn("bucket does not support cors configuration, ignoring", zap.Error(err))
		return nil
	}
	return nil
}

var _ Storage = (*S3Storage)(nil)
