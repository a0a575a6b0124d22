package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig lists the environment variables read by WithEnv.
type EnvConfig struct {
	Port        string `env:"LIBSTORE_PORT" env-description:"HTTP port"`
	Environment string `env:"LIBSTORE_ENVIRONMENT" env-description:"development, production or testing"`
	LogLevel    string `env:"LIBSTORE_LOG_LEVEL" env-description:"debug, info, warn or error"`

	// memory, postgres://..., postgresql://... or sqlite://path
	DatabaseURL   string `env:"LIBSTORE_DATABASE_URL" env-description:"database connection string"`
	DBSchema      string `env:"LIBSTORE_DB_SCHEMA" env-description:"Postgres schema"`
	DBAutoMigrate bool   `env:"LIBSTORE_DB_AUTO_MIGRATE" env-default:"false" env-description:"create tables on startup"`

	// memory://, file:///path or s3://bucket?region=..&endpoint=..&path_style=true
	StorageURL string `env:"LIBSTORE_STORAGE_URL" env-description:"block payload storage"`

	S3AccessKeyID     string `env:"LIBSTORE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"LIBSTORE_S3_SECRET_ACCESS_KEY"`
	S3Region          string `env:"LIBSTORE_S3_REGION"`
	S3Endpoint        string `env:"LIBSTORE_S3_ENDPOINT"`
	S3CreateBucket    bool   `env:"LIBSTORE_S3_CREATE_BUCKET" env-default:"false"`

	EventLogging bool `env:"LIBSTORE_EVENT_LOGGING" env-default:"true"`
}

// WithEnv applies environment variable overrides.
//
// Unset variables leave the current configuration alone, except
// LIBSTORE_DATABASE_URL and LIBSTORE_STORAGE_URL which fall back to memory.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env EnvConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

// EnvUsage returns a description of the environment variables.
func EnvUsage() string {
	desc, _ := cleanenv.GetDescription(&EnvConfig{}, nil)
	return desc
}

func (e *EnvConfig) apply(c *ServerConfig) error {
	if e.Port != "" {
		c.Port = e.Port
	}
	if e.Environment != "" {
		c.Environment = e.Environment
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	if e.DBSchema != "" {
		c.DBSchema = e.DBSchema
	}
	c.DBAutoMigrate = e.DBAutoMigrate
	c.EnableEventLogging = e.EventLogging

	if err := e.applyDatabase(c); err != nil {
		return err
	}
	return e.applyStorage(c)
}

func (e *EnvConfig) applyDatabase(c *ServerConfig) error {
	dbURL := e.DatabaseURL
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		if SQLitePath(dbURL) == "" {
			return fmt.Errorf("sqlite path cannot be empty in LIBSTORE_DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported LIBSTORE_DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

func (e *EnvConfig) applyStorage(c *ServerConfig) error {
	storageURL := e.StorageURL
	switch {
	case storageURL == "" || storageURL == "memory" || storageURL == "memory://":
		c.DefaultStorageBackend = "memory"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{Name: "memory", Type: "memory"})
		return nil
	case strings.HasPrefix(storageURL, "file://"):
		path := strings.TrimPrefix(storageURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in LIBSTORE_STORAGE_URL")
		}
		c.DefaultStorageBackend = "fs"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name:   "fs",
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": path},
		})
		return nil
	case strings.HasPrefix(storageURL, "s3://"):
		return e.applyS3(storageURL, c)
	}
	return fmt.Errorf("unsupported LIBSTORE_STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyS3 configures S3 storage from s3://bucket?region=..&endpoint=..&path_style=true
func (e *EnvConfig) applyS3(raw string, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid LIBSTORE_STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in LIBSTORE_STORAGE_URL")
	}

	q := u.Query()
	cfg := map[string]interface{}{
		"bucket":                     u.Host,
		"region":                     firstNonEmpty(e.S3Region, q.Get("region"), "us-east-1"),
		"endpoint":                   firstNonEmpty(e.S3Endpoint, q.Get("endpoint")),
		"use_path_style":             q.Get("path_style"),
		"create_bucket_if_not_exist": e.S3CreateBucket,
	}
	if e.S3AccessKeyID != "" {
		cfg["access_key_id"] = e.S3AccessKeyID
	}
	if e.S3SecretAccessKey != "" {
		cfg["secret_access_key"] = e.S3SecretAccessKey
	}

	c.DefaultStorageBackend = "s3"
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
		Name:   "s3",
		Type:   "s3",
		Config: cfg,
	})
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
