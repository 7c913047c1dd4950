// Package config loads the gcmutil configuration from a YAML or TOML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/neodroidpune/GCMUtility/gcm"
	"github.com/neodroidpune/GCMUtility/prefs"
)

// StoreBackend selects where preferences are kept.
type StoreBackend string

const (
	StoreFile      StoreBackend = "file"
	StoreMemory    StoreBackend = "memory"
	StoreRedis     StoreBackend = "redis"
	StoreFirestore StoreBackend = "firestore"
)

type AppConfig struct {
	Package  string
	Version  int
	CertSHA1 string
}

type StoreConfig struct {
	Backend   StoreBackend
	Dir       string
	Namespace string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirestoreConfig struct {
	ProjectID string
}

// Config is the validated configuration used by the CLI.
type Config struct {
	SenderID      string
	App           AppConfig
	Store         StoreConfig
	Redis         RedisConfig
	Firestore     FirestoreConfig
	MinGMSVersion int
	// HTTPTimeout bounds each GCM HTTP call. Zero means no timeout.
	HTTPTimeout time.Duration
	LogLevel    slog.Level
}

// DefaultDir is where the file store keeps its data unless configured.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gcmutil")
}

// Default returns a Config with every optional field filled in.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   StoreFile,
			Dir:       DefaultDir(),
			Namespace: prefs.DefaultNamespace,
		},
		MinGMSVersion: gcm.DefaultMinGMSVersion,
		LogLevel:      slog.LevelInfo,
	}
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("GCM_SENDER_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "GCM_SENDER_ID", "source", "env")
		cfg.SenderID = val
	}
	if val := os.Getenv("GCM_APP_PACKAGE"); val != "" {
		logger.Debug("Overriding config value", "key", "GCM_APP_PACKAGE", "source", "env")
		cfg.App.Package = val
	}
	if val := os.Getenv("GCM_APP_VERSION"); val != "" {
		v, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("GCM_APP_VERSION: %w", err)
		}
		logger.Debug("Overriding config value", "key", "GCM_APP_VERSION", "source", "env")
		cfg.App.Version = v
	}
	if val := os.Getenv("GCM_CERT_SHA1"); val != "" {
		logger.Debug("Overriding config value", "key", "GCM_CERT_SHA1", "source", "env")
		cfg.App.CertSHA1 = val
	}

	// Store overrides
	if val := os.Getenv("GCM_STORE"); val != "" {
		logger.Debug("Overriding config value", "key", "GCM_STORE", "source", "env")
		cfg.Store.Backend = StoreBackend(strings.ToLower(val))
	}
	if val := os.Getenv("GCM_SESSION_DIR"); val != "" {
		logger.Debug("Overriding config value", "key", "GCM_SESSION_DIR", "source", "env")
		cfg.Store.Dir = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		logger.Debug("Overriding config value", "key", "REDIS_ADDR", "source", "env")
		cfg.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if val := os.Getenv("FIRESTORE_PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "FIRESTORE_PROJECT_ID", "source", "env")
		cfg.Firestore.ProjectID = val
	}

	// GCM client overrides
	if val := os.Getenv("GCM_MIN_GMS_VERSION"); val != "" {
		v, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("GCM_MIN_GMS_VERSION: %w", err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("GCM_MIN_GMS_VERSION: must be positive, got %d", v)
		}
		logger.Debug("Overriding config value", "key", "GCM_MIN_GMS_VERSION", "source", "env")
		cfg.MinGMSVersion = v
	}
	if val := os.Getenv("GCM_HTTP_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("GCM_HTTP_TIMEOUT: %w", err)
		}
		logger.Debug("Overriding config value", "key", "GCM_HTTP_TIMEOUT", "source", "env")
		cfg.HTTPTimeout = d
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		level, err := parseLevel(val)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

// Validate checks the fields every command needs. The sender ID is checked
// by the commands that use it.
func (c *Config) Validate() error {
	if c.App.Package == "" {
		return errors.New("app package is required (set via config file or GCM_APP_PACKAGE env var)")
	}
	if c.App.Version <= 0 {
		return errors.New("app version must be a positive version code (set via config file or GCM_APP_VERSION env var)")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("http timeout must not be negative")
	}
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.Dir == "" {
			return errors.New("store dir is required for the file store")
		}
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis addr is required for the redis store (REDIS_ADDR)")
		}
	case StoreFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.New("firestore project_id is required for the firestore store (FIRESTORE_PROJECT_ID)")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = prefs.DefaultNamespace
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
