// Package gcm implements Android-native Google Cloud Messaging registration.
//
// It performs the device checkin against android.clients.google.com, keeps
// the resulting device credentials, and requests registration tokens from
// the c2dm/register3 endpoint for a given sender ID.
//
// Usage:
//
//	client := gcm.NewClient(gcm.AppIdentity{Package: "com.example.app", CertSHA1: cert, Version: 6},
//		gcm.WithCredentialStore(store))
//	token, err := client.Register(ctx, "123456789")
package gcm
