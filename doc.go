// Package gcmutility registers an application instance with Google Cloud
// Messaging and caches the registration token in a private key-value store.
//
// A Manager checks that the push service is usable, returns the cached token
// when it was issued for the running application version, and otherwise
// registers in the background and persists the new token together with the
// version code. Upgrading the application invalidates the cached token.
//
// The gcm subpackage talks to Google's checkin and register3 endpoints; the
// prefs subpackage provides the file, memory, Redis and Firestore stores.
//
// Usage:
//
//	client := gcm.NewClient(gcm.AppIdentity{Package: "com.example.app", CertSHA1: cert, Version: 6})
//	mgr := gcmutility.NewManager(client, store, gcmutility.StaticVersion(6),
//		gcmutility.WithAvailability(client))
//	res, err := mgr.Register(ctx, "123").Wait(ctx)
package gcmutility
