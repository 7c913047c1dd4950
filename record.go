package gcmutility

import (
	"context"
	"fmt"

	"github.com/neodroidpune/GCMUtility/prefs"
)

// Preference keys holding the cached registration.
const (
	KeyRegisteredID = "REGISTERED_ID"
	KeyAppVersion   = "PROPERTY_APP_VERSION"
)

// RegistrationRecord is the cached result of a successful registration.
type RegistrationRecord struct {
	Token      string `json:"token" yaml:"token"`
	AppVersion int    `json:"app_version" yaml:"app_version"`
}

// ValidFor reports whether the record can be reused by the given application
// version. A token issued for another version is not guaranteed to work.
func (r RegistrationRecord) ValidFor(version int) bool {
	return r.Token != "" && r.AppVersion == version
}

// loadRecord reads the cached record. ok is false when no token is stored.
func loadRecord(ctx context.Context, store *prefs.Preferences) (rec RegistrationRecord, ok bool, err error) {
	token, hasToken, err := store.GetString(ctx, KeyRegisteredID)
	if err != nil {
		return RegistrationRecord{}, false, fmt.Errorf("reading cached registration: %w", err)
	}
	if !hasToken || token == "" {
		return RegistrationRecord{}, false, nil
	}
	version, hasVersion, err := store.GetInt(ctx, KeyAppVersion)
	if err != nil {
		return RegistrationRecord{}, false, fmt.Errorf("reading cached app version: %w", err)
	}
	if !hasVersion {
		// A token without a version can never match; treat it as absent.
		return RegistrationRecord{Token: token}, false, nil
	}
	return RegistrationRecord{Token: token, AppVersion: version}, true, nil
}

// storeRecord writes token and version in one commit.
func storeRecord(ctx context.Context, store *prefs.Preferences, rec RegistrationRecord) error {
	err := store.Edit().
		PutString(KeyRegisteredID, rec.Token).
		PutInt(KeyAppVersion, rec.AppVersion).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("saving registration: %w", err)
	}
	return nil
}
