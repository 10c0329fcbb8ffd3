// Package config provides configuration loading and structs for the
// docbox CLI and its wired components.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a docbox deployment.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Env      string         `yaml:"env"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Events   EventsConfig   `yaml:"events"`
}

// DatabaseConfig holds Postgres connectivity and pool-cache settings.
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`

	// RootSecretName names the secret holding the root database's
	// credentials. Leave empty and set RootIAM for identity-based auth.
	RootSecretName string `yaml:"root_secret_name"`
	RootIAM        bool   `yaml:"root_iam"`

	MaxConnections     int `yaml:"max_connections"`
	MaxConnectionsRoot int `yaml:"max_connections_root"`

	AcquireTimeoutSeconds int `yaml:"acquire_timeout_seconds"`
	IdleTimeoutSeconds    int `yaml:"idle_timeout_seconds"`

	PoolTTLSeconds    int `yaml:"pool_ttl_seconds"`
	PoolCacheCapacity int `yaml:"pool_cache_capacity"`

	CredentialsTTLSeconds int `yaml:"credentials_ttl_seconds"`
	CredentialsCapacity   int `yaml:"credentials_capacity"`
}

// AcquireTimeout returns the configured acquire timeout as a Duration.
func (d *DatabaseConfig) AcquireTimeout() time.Duration {
	return time.Duration(d.AcquireTimeoutSeconds) * time.Second
}

// IdleTimeout returns the configured idle timeout as a Duration.
func (d *DatabaseConfig) IdleTimeout() time.Duration {
	return time.Duration(d.IdleTimeoutSeconds) * time.Second
}

// PoolTTL returns the configured pool TTL as a Duration.
func (d *DatabaseConfig) PoolTTL() time.Duration {
	return time.Duration(d.PoolTTLSeconds) * time.Second
}

// CredentialsTTL returns the configured credentials TTL as a Duration.
func (d *DatabaseConfig) CredentialsTTL() time.Duration {
	return time.Duration(d.CredentialsTTLSeconds) * time.Second
}

// StorageConfig selects and configures the object-store backend.
type StorageConfig struct {
	// Backend is "s3" or "local".
	Backend string `yaml:"backend"`

	// Endpoint, when set, points the S3 backend at a custom
	// S3-compatible service (e.g. MinIO) instead of AWS.
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`

	// LocalDir roots the local filesystem backend; LocalPublicURL is the
	// base URL its presigned requests are built against.
	LocalDir       string `yaml:"local_dir"`
	LocalPublicURL string `yaml:"local_public_url"`
}

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	// Backend is "typesense", "self_hosted", or "database".
	Backend string `yaml:"backend"`

	// Typesense connectivity; the API key may be inline or named as a
	// secret.
	TypesenseURL              string `yaml:"typesense_url"`
	TypesenseAPIKey           string `yaml:"typesense_api_key"`
	TypesenseAPIKeySecretName string `yaml:"typesense_api_key_secret_name"`

	// IndexDir roots the self-hosted backend's on-disk indexes.
	IndexDir string `yaml:"index_dir"`
}

// SecretsConfig selects the secret-store backend.
type SecretsConfig struct {
	// Backend is "aws" or "memory". The memory backend holds secrets
	// only for the life of the process and suits development only.
	Backend string `yaml:"backend"`
}

// EventsConfig configures the event publisher.
type EventsConfig struct {
	// Endpoint, when set, points the SQS client at a custom endpoint
	// (e.g. a local emulator) instead of AWS.
	Endpoint string `yaml:"endpoint"`
}

// Load reads and parses the config file at path, expands storage and
// index paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.LocalDir = expandPath(cfg.Storage.LocalDir, configDir)
	cfg.Search.IndexDir = expandPath(cfg.Search.IndexDir, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
