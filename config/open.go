package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/neodroidpune/GCMUtility/gcm"
	"github.com/neodroidpune/GCMUtility/prefs"
)

// DeviceNamespace holds the GCM device credentials, apart from the
// registration record.
const DeviceNamespace = "GCM_DEVICE"

// Stores are the preference namespaces a registration needs.
type Stores struct {
	// Registration holds the cached token and app version.
	Registration *prefs.Preferences
	// Device holds the checkin credentials and instance ID.
	Device *prefs.Preferences

	close func() error
}

// Close releases the backend connection, if any.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the configured backend.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stores, error) {
	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Preference store opened", "backend", cfg.Store.Backend, "namespace", cfg.Store.Namespace)

	reg, err := prefs.New(backend, cfg.Store.Namespace)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	dev, err := prefs.New(backend, DeviceNamespace)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	return &Stores{Registration: reg, Device: dev, close: closeFn}, nil
}

func openBackend(ctx context.Context, cfg *Config) (prefs.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case StoreMemory:
		return prefs.NewMemoryBackend(), noop, nil
	case StoreFile:
		return prefs.NewFileBackend(cfg.Store.Dir), noop, nil
	case StoreRedis:
		rb, err := prefs.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return rb, rb.Close, nil
	case StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		return prefs.NewFirestoreBackend(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewClient builds the GCM client described by cfg.
func NewClient(cfg *Config, device *prefs.Preferences, logger *slog.Logger) *gcm.Client {
	return gcm.NewClient(
		gcm.AppIdentity{
			Package:  cfg.App.Package,
			CertSHA1: cfg.App.CertSHA1,
			Version:  cfg.App.Version,
		},
		gcm.WithLogger(logger),
		gcm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		gcm.WithCredentialStore(device),
		gcm.WithMinGMSVersion(cfg.MinGMSVersion),
	)
}

// NewLogger returns a text logger writing to w at the configured level.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
