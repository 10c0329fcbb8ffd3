package cli

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/dbpool"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/provisioner"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/search/bleveindex"
	"github.com/docbox-nz/docbox/internal/search/database"
	"github.com/docbox-nz/docbox/internal/search/typesense"
	"github.com/docbox-nz/docbox/internal/secrets"
	"github.com/docbox-nz/docbox/internal/storage"
	"github.com/docbox-nz/docbox/pkg/logging"
)

// env is every wired component a command might need, built once per
// invocation from the loaded config.
type env struct {
	log     *zap.Logger
	pools   *dbpool.Cache
	secrets secrets.Manager
	storage storage.BucketProvider
	search  *search.Factory
	events  *events.Factory
	prov    *provisioner.Provisioner
}

// buildEnv wires the configured backends together: the AWS SDK config,
// the secret store, the pool cache, and the storage/search/event
// factories, in dependency order.
func buildEnv(ctx context.Context) (*env, error) {
	var log *zap.Logger
	var err error
	if cfg.Debug {
		log, err = logging.NewDevelopmentLogger()
	} else {
		log, err = logging.NewProductionLogger()
	}
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var secretsMgr secrets.Manager
	switch cfg.Secrets.Backend {
	case "aws", "":
		secretsMgr = secrets.NewAWS(secretsmanager.NewFromConfig(awsCfg))
	case "memory":
		secretsMgr = secrets.NewMemory()
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}

	var rootSecret *string
	if cfg.Database.RootSecretName != "" {
		rootSecret = &cfg.Database.RootSecretName
	}
	pools := dbpool.New(log, dbpool.Config{
		Host:                cfg.Database.Host,
		Port:                cfg.Database.Port,
		RootSecretName:      rootSecret,
		RootIAM:             cfg.Database.RootIAM,
		MaxConnections:      uint32(cfg.Database.MaxConnections),
		MaxConnectionsRoot:  uint32(cfg.Database.MaxConnectionsRoot),
		AcquireTimeout:      cfg.Database.AcquireTimeout(),
		IdleTimeout:         cfg.Database.IdleTimeout(),
		PoolTTL:             cfg.Database.PoolTTL(),
		PoolCacheCapacity:   cfg.Database.PoolCacheCapacity,
		CredentialsTTL:      cfg.Database.CredentialsTTL(),
		CredentialsCapacity: cfg.Database.CredentialsCapacity,
	}, secretsMgr, awsCfg.Credentials, awsCfg.Region)

	var store storage.BucketProvider
	switch cfg.Storage.Backend {
	case "s3", "":
		store = storage.NewFactory(log, awsCfg, storage.EndpointConfig{
			Custom:          cfg.Storage.Endpoint != "",
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			AccessKeySecret: cfg.Storage.AccessKeySecret,
		})
	case "local":
		store = storage.NewLocalFactory(log, cfg.Storage.LocalDir, cfg.Storage.LocalPublicURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	searchFactory, err := buildSearchFactory(pools, secretsMgr)
	if err != nil {
		return nil, err
	}

	eventsFactory := events.NewFactory(sqsClient(awsCfg), log)

	return &env{
		log:     log,
		pools:   pools,
		secrets: secretsMgr,
		storage: store,
		search:  searchFactory,
		events:  eventsFactory,
		prov: &provisioner.Provisioner{
			Pools:          pools,
			Secrets:        secretsMgr,
			StorageFactory: store,
			SearchFactory:  searchFactory,
			Logger:         log,
		},
	}, nil
}

func buildSearchFactory(pools *dbpool.Cache, secretsMgr secrets.Manager) (*search.Factory, error) {
	switch search.BackendType(cfg.Search.Backend) {
	case search.BackendTypesense:
		tsConfig := typesense.Config{URL: cfg.Search.TypesenseURL}
		if cfg.Search.TypesenseAPIKey != "" {
			tsConfig.APIKey = &cfg.Search.TypesenseAPIKey
		}
		if cfg.Search.TypesenseAPIKeySecretName != "" {
			tsConfig.APIKeySecretName = &cfg.Search.TypesenseAPIKeySecretName
		}
		apiKey, err := typesense.NewAPIKeyProvider(secretsMgr, tsConfig)
		if err != nil {
			return nil, err
		}
		return search.NewFactory(search.BackendTypesense, typesense.NewFactory(apiKey, tsConfig))
	case search.BackendSelfHosted:
		return search.NewFactory(search.BackendSelfHosted, bleveindex.NewFactory(cfg.Search.IndexDir))
	case search.BackendDatabase:
		return search.NewFactory(search.BackendDatabase, database.NewFactory(pools))
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}
}

func sqsClient(awsCfg aws.Config) *sqs.Client {
	if cfg.Events.Endpoint != "" {
		endpoint := cfg.Events.Endpoint
		return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	return sqs.NewFromConfig(awsCfg)
}

// close releases held resources at the end of a command.
func (e *env) close() {
	e.pools.CloseAll()
	e.pools.Close()
	_ = e.log.Sync()
}
