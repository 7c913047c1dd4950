package gcm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	gcmutility "github.com/neodroidpune/GCMUtility"
	"github.com/neodroidpune/GCMUtility/prefs"
)

// Preference keys holding the device credentials and instance ID.
const (
	KeyAndroidID     = "GCM_ANDROID_ID"
	KeySecurityToken = "GCM_SECURITY_TOKEN"
	KeyInstanceID    = "GCM_INSTANCE_ID"
)

// DefaultMinGMSVersion is the oldest Play services version accepted by
// Availability. GCM registration needs Play services 3.1 or later.
const DefaultMinGMSVersion = 3136100

// minSDKVersion is Android 2.2, the first release that shipped GCM.
const minSDKVersion = 8

// Option configures Client.
type Option func(*Client)

// WithLogger sets a custom logger for Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client for checkin and registration.
// Its Timeout, if any, is the only timeout applied to the network calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDevice replaces the default device profile.
func WithDevice(device AndroidDeviceInfo) Option {
	return func(c *Client) {
		c.device = device
	}
}

// WithCredentialStore persists device credentials and the instance ID so a
// restart reuses them instead of checking in as a new device.
func WithCredentialStore(store *prefs.Preferences) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithMinGMSVersion sets the oldest Play services version Availability accepts.
func WithMinGMSVersion(v int) Option {
	return func(c *Client) {
		c.minGMSVersion = v
	}
}

// Client checks in with GCM and requests registration tokens.
// It implements gcmutility.Registrar and gcmutility.Availability.
type Client struct {
	app           AppIdentity
	device        AndroidDeviceInfo
	minGMSVersion int
	store         *prefs.Preferences
	logger        *slog.Logger
	httpClient    *http.Client

	mu          sync.Mutex
	credentials Credentials
	instanceID  string
}

var (
	_ gcmutility.Registrar    = (*Client)(nil)
	_ gcmutility.Availability = (*Client)(nil)
)

// NewClient creates a new Client for app.
func NewClient(app AppIdentity, opts ...Option) *Client {
	c := &Client{
		app:           app,
		device:        DefaultAndroidDevice(),
		minGMSVersion: DefaultMinGMSVersion,
		logger:        slog.Default(),
		httpClient:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Device returns the device profile in use.
func (c *Client) Device() AndroidDeviceInfo { return c.device }

// Credentials returns the current device credentials (zero if not checked in).
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credentials
}

// Availability derives the Play services status from the device profile.
func (c *Client) Availability(context.Context) gcmutility.ServiceStatus {
	switch {
	case c.device.SDKVersion > 0 && c.device.SDKVersion < minSDKVersion:
		return gcmutility.ServiceInvalid
	case c.device.GMSVersion <= 0:
		return gcmutility.ServiceMissing
	case c.device.ServicesDisabled:
		return gcmutility.ServiceDisabled
	case c.device.GMSVersion < c.minGMSVersion:
		return gcmutility.ServiceVersionUpdateRequired
	default:
		return gcmutility.ServiceSuccess
	}
}

// Checkin checks the device in, reusing existing credentials for a
// re-checkin when there are any, and stores the result.
func (c *Client) Checkin(ctx context.Context) (Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.credentials.Valid() {
		c.loadCredentialsLocked(ctx)
	}
	return c.checkinLocked(ctx, c.loggingHTTPClient(), c.credentials)
}

// Register performs GCM registration for senderID and returns the token.
// Device credentials are checked in on first use and reused afterwards.
func (c *Client) Register(ctx context.Context, senderID string) (string, error) {
	if senderID == "" {
		return "", gcmutility.ErrEmptySenderID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("Starting GCM registration", "sender_id", senderID, "app", c.app.Package)
	httpClient := c.loggingHTTPClient()

	// Step 1: device credentials, from memory, the store or a fresh checkin
	creds := c.credentials
	if !creds.Valid() {
		creds = c.loadCredentialsLocked(ctx)
	}
	if !creds.Valid() {
		var err error
		creds, err = c.checkinLocked(ctx, httpClient, Credentials{})
		if err != nil {
			return "", fmt.Errorf("GCM registration failed (checkin): %w", err)
		}
	}

	instanceID, err := c.instanceIDLocked(ctx)
	if err != nil {
		return "", fmt.Errorf("GCM registration failed: %w", err)
	}

	// Step 2: register3
	token, err := register(ctx, httpClient, creds, c.device, c.app, senderID, instanceID)
	if err != nil {
		return "", fmt.Errorf("GCM registration failed (register): %w", err)
	}
	if token == "" {
		return "", gcmutility.ErrEmptyToken
	}

	c.logger.Info("GCM registration complete", "token_prefix", truncate(token, 20))
	return token, nil
}

func (c *Client) checkinLocked(ctx context.Context, httpClient *http.Client, prev Credentials) (Credentials, error) {
	creds, err := checkin(ctx, httpClient, prev, c.device)
	if err != nil {
		return Credentials{}, err
	}
	c.logger.Debug("GCM checkin complete", "androidId", creds.AndroidID, "recheckin", prev.Valid())
	c.credentials = creds

	if c.store != nil {
		err := c.store.Edit().
			PutUint64(KeyAndroidID, creds.AndroidID).
			PutUint64(KeySecurityToken, creds.SecurityToken).
			Commit(ctx)
		if err != nil {
			c.logger.Error("Failed to save GCM credentials", "error", err)
		}
	}
	return creds, nil
}

// loadCredentialsLocked reads stored credentials. Unreadable credentials are
// logged and treated as absent, which leads to a fresh checkin.
func (c *Client) loadCredentialsLocked(ctx context.Context) Credentials {
	if c.store == nil {
		return Credentials{}
	}
	id, okID, err := c.store.GetUint64(ctx, KeyAndroidID)
	if err != nil {
		c.logger.Warn("failed to load persisted GCM credentials; checking in again", "error", err)
		return Credentials{}
	}
	token, okToken, err := c.store.GetUint64(ctx, KeySecurityToken)
	if err != nil {
		c.logger.Warn("failed to load persisted GCM credentials; checking in again", "error", err)
		return Credentials{}
	}
	if !okID || !okToken {
		return Credentials{}
	}
	creds := Credentials{AndroidID: id, SecurityToken: token}
	if creds.Valid() {
		c.logger.Debug("GCM credentials already exist, reusing them", "androidId", id)
		c.credentials = creds
	}
	return creds
}

func (c *Client) instanceIDLocked(ctx context.Context) (string, error) {
	if c.instanceID != "" {
		return c.instanceID, nil
	}
	if c.store != nil {
		id, ok, err := c.store.GetString(ctx, KeyInstanceID)
		if err != nil {
			c.logger.Warn("failed to load instance ID; generating a new one", "error", err)
		}
		if ok && id != "" {
			c.instanceID = id
			return id, nil
		}
	}

	id, err := generateInstanceID()
	if err != nil {
		return "", err
	}
	c.instanceID = id
	if c.store != nil {
		if err := c.store.Edit().PutString(KeyInstanceID, id).Commit(ctx); err != nil {
			c.logger.Error("Failed to save instance ID", "error", err)
		}
	}
	return id, nil
}

// truncate returns the first maxLen characters of s, or s itself if shorter.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
