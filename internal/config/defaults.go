package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "Development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "s3"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./data/storage"
	}
	if cfg.Storage.LocalPublicURL == "" {
		cfg.Storage.LocalPublicURL = "http://localhost:8085"
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "database"
	}
	if cfg.Search.IndexDir == "" {
		cfg.Search.IndexDir = "./data/indexes"
	}
	if cfg.Secrets.Backend == "" {
		cfg.Secrets.Backend = "aws"
	}
}
