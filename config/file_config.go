package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type FileAppConfig struct {
	Package  string `yaml:"package" toml:"package"`
	Version  int    `yaml:"version" toml:"version"`
	CertSHA1 string `yaml:"cert_sha1" toml:"cert_sha1"`
}

type FileStoreConfig struct {
	Backend   string `yaml:"backend" toml:"backend"`
	Dir       string `yaml:"dir" toml:"dir"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

type FileRedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

type FileFirestoreConfig struct {
	ProjectID string `yaml:"project_id" toml:"project_id"`
}

type FileGCMConfig struct {
	MinGMSVersion int    `yaml:"min_gms_version" toml:"min_gms_version"`
	HTTPTimeout   string `yaml:"http_timeout" toml:"http_timeout"`
}

// FileConfig mirrors the raw config file. The same layout is accepted as
// YAML (.yaml, .yml) or TOML (.toml).
type FileConfig struct {
	SenderID  string              `yaml:"sender_id" toml:"sender_id"`
	LogLevel  string              `yaml:"log_level" toml:"log_level"`
	App       FileAppConfig       `yaml:"app" toml:"app"`
	Store     FileStoreConfig     `yaml:"store" toml:"store"`
	Redis     FileRedisConfig     `yaml:"redis" toml:"redis"`
	Firestore FileFirestoreConfig `yaml:"firestore" toml:"firestore"`
	GCM       FileGCMConfig       `yaml:"gcm" toml:"gcm"`
}

// LoadFile reads and decodes the config file at path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// NewConfigFromFile converts the FileConfig into a Config, filling defaults
// for anything the file leaves out.
func NewConfigFromFile(fc *FileConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping file config to base config struct")

	cfg := Default()
	cfg.SenderID = fc.SenderID
	cfg.App = AppConfig{
		Package:  fc.App.Package,
		Version:  fc.App.Version,
		CertSHA1: fc.App.CertSHA1,
	}
	if fc.Store.Backend != "" {
		cfg.Store.Backend = StoreBackend(strings.ToLower(fc.Store.Backend))
	}
	if fc.Store.Dir != "" {
		cfg.Store.Dir = fc.Store.Dir
	}
	if fc.Store.Namespace != "" {
		cfg.Store.Namespace = fc.Store.Namespace
	}
	cfg.Redis = RedisConfig{
		Addr:     fc.Redis.Addr,
		Password: fc.Redis.Password,
		DB:       fc.Redis.DB,
	}
	cfg.Firestore.ProjectID = fc.Firestore.ProjectID
	if fc.GCM.MinGMSVersion > 0 {
		cfg.MinGMSVersion = fc.GCM.MinGMSVersion
	}
	if fc.GCM.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.GCM.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("gcm.http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if fc.LogLevel != "" {
		level, err := parseLevel(fc.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	logger.Debug("File config mapping complete",
		"sender_id", cfg.SenderID,
		"app", cfg.App.Package,
		"store", cfg.Store.Backend,
	)
	return cfg, nil
}
