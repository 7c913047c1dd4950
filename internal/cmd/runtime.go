package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	gcmutility "github.com/neodroidpune/GCMUtility"
	"github.com/neodroidpune/GCMUtility/config"
	"github.com/neodroidpune/GCMUtility/gcm"
	"github.com/neodroidpune/GCMUtility/prefs"
)

// gcmClient is the part of *gcm.Client the commands use.
type gcmClient interface {
	gcmutility.Registrar
	gcmutility.Availability
	Checkin(ctx context.Context) (gcm.Credentials, error)
}

var newGCMClient = func(cfg *config.Config, device *prefs.Preferences, logger *slog.Logger) gcmClient {
	return config.NewClient(cfg, device, logger)
}

// runtime is everything a command needs, built from the config.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	stores  *config.Stores
	client  gcmClient
	manager *gcmutility.Manager
}

// loadConfig reads the config file (if any), then environment overrides,
// then the --session-dir flag.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		fc, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.NewConfigFromFile(fc, logger); err != nil {
			return nil, err
		}
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
	if err != nil {
		return nil, err
	}
	if sessionDir != "" {
		cfg.Store.Dir = sessionDir
	}
	return cfg, nil
}

func openRuntime(ctx context.Context, stderr io.Writer) (*runtime, error) {
	cfg, err := loadConfig(slog.Default())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := config.NewLogger(cfg, stderr)

	stores, err := config.OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	client := newGCMClient(cfg, stores.Device, logger)
	mgr := gcmutility.NewManager(client, stores.Registration, gcmutility.StaticVersion(cfg.App.Version),
		gcmutility.WithLogger(logger),
		gcmutility.WithAvailability(client),
	)
	return &runtime{cfg: cfg, logger: logger, stores: stores, client: client, manager: mgr}, nil
}

func (r *runtime) Close() {
	if err := r.stores.Close(); err != nil {
		r.logger.Warn("closing store", "error", err)
	}
}
