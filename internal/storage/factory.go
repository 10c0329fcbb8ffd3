package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// EndpointConfig selects between a real AWS endpoint and a custom
// S3-compatible one (e.g. a local MinIO instance for development).
type EndpointConfig struct {
	Custom          bool
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
}

// Factory builds per-tenant S3Storage instances sharing one underlying
// client, mirroring how the tenant pool cache shares one client per auth
// mode rather than reconnecting per tenant.
type Factory struct {
	log       *zap.Logger
	client    *s3.Client
	presigner *s3.PresignClient
}

// NewFactory builds a Factory from resolved AWS SDK config and an
// endpoint selection.
func NewFactory(log *zap.Logger, awsCfg aws.Config, endpoint EndpointConfig) *Factory {
	var client *s3.Client
	if endpoint.Custom {
		log.Debug("using custom s3 storage layer")
		client = s3.New(s3.Options{
			Region:       awsCfg.Region,
			BaseEndpoint: aws.String(endpoint.Endpoint),
			UsePathStyle: true,
			Credentials:  credentials.NewStaticCredentialsProvider(endpoint.AccessKeyID, endpoint.AccessKeySecret, ""),
		})
	} else {
		log.Debug("using aws s3 storage layer")
		client = s3.NewFromConfig(awsCfg)
	}

	return &Factory{log: log, client: client, presigner: s3.NewPresignClient(client)}
}

// LoadDefaultEndpoint resolves EndpointConfig from explicit fields,
// falling back to plain AWS when no custom endpoint is configured.
func LoadDefaultEndpoint(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// ForBucket returns a Storage bound to one tenant's bucket.
func (f *Factory) ForBucket(bucketName string) Storage {
	return NewS3Storage(f.log, f.client, f.presigner, bucketName)
}

var _ BucketProvider = (*Factory)(nil)

// LocalFactory builds per-tenant LocalStorage instances rooted under one
// shared directory, the filesystem analogue of Factory for development
// and tests.
type LocalFactory struct {
	log       *zap.Logger
	dir       string
	publicURL string
}

// NewLocalFactory roots every tenant bucket under dir; publicURL is the
// base presigned requests are built against.
func NewLocalFactory(log *zap.Logger, dir, publicURL string) *LocalFactory {
	return &LocalFactory{log: log, dir: dir, publicURL: publicURL}
}

// ForBucket returns a Storage rooted at dir/<bucketName>.
func (f *LocalFactory) ForBucket(bucketName string) Storage {
	return NewLocalStorage(f.log, f.dir, bucketName, f.publicURL)
}

var _ BucketProvider = (*LocalFactory)(nil)
