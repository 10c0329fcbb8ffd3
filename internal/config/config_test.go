package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: "Production"
database:
  host: "db.internal"
  port: 5433
  root_secret_name: "docbox/root"
search:
  backend: "typesense"
  typesense_url: "http://search:8108"
  typesense_api_key_secret_name: "docbox/typesense"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Env != "Production" {
		t.Errorf("env = %q", cfg.Env)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Search.Backend != "typesense" {
		t.Errorf("search backend = %q", cfg.Search.Backend)
	}
	// Unset sections fall back to defaults.
	if cfg.Storage.Backend != "s3" {
		t.Errorf("storage backend = %q", cfg.Storage.Backend)
	}
	if cfg.Secrets.Backend != "aws" {
		t.Errorf("secrets backend = %q", cfg.Secrets.Backend)
	}
}

func TestLoad_defaultsWhenMostlyEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set")
	}
	if cfg.Env != "Development" {
		t.Errorf("env = %q", cfg.Env)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Search.Backend != "database" {
		t.Errorf("search backend default = %q", cfg.Search.Backend)
	}
}

func TestLoad_expandsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  backend: "local"
  local_dir: "./data/storage"
search:
  backend: "self_hosted"
  index_dir: "./data/indexes"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "storage"); cfg.Storage.LocalDir != want {
		t.Errorf("local_dir = %q, want %q", cfg.Storage.LocalDir, want)
	}
	if want := filepath.Join(dir, "data", "indexes"); cfg.Search.IndexDir != want {
		t.Errorf("index_dir = %q, want %q", cfg.Search.IndexDir, want)
	}
}

func TestLoad_missingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestDurationAccessors(t *testing.T) {
	d := DatabaseConfig{AcquireTimeoutSeconds: 60, IdleTimeoutSeconds: 600}
	if d.AcquireTimeout().Seconds() != 60 {
		t.Errorf("AcquireTimeout = %v", d.AcquireTimeout())
	}
	if d.IdleTimeout().Minutes() != 10 {
		t.Errorf("IdleTimeout = %v", d.IdleTimeout())
	}
}
