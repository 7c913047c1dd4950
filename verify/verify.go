// Package verify proves a registration token is live by sending it a data
// message through Firebase Cloud Messaging.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// ErrTokenRejected means FCM refused the token as unregistered or malformed.
var ErrTokenRejected = errors.New("token rejected by FCM")

// MessagingClient is the subset of the Firebase Messaging API used here.
// *messaging.Client satisfies it.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Verifier struct {
	client MessagingClient
	logger *slog.Logger
	ttl    time.Duration
}

// NewVerifier wraps an existing messaging client.
func NewVerifier(client MessagingClient, logger *slog.Logger) *Verifier {
	return &Verifier{
		client: client,
		logger: logger.With("component", "Verifier"),
		ttl:    time.Minute,
	}
}

// New creates a Verifier for the Firebase project projectID. Credentials come
// from opts, typically option.WithCredentialsFile, or the environment.
func New(ctx context.Context, projectID string, logger *slog.Logger, opts ...option.ClientOption) (*Verifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase App: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase Messaging client: %w", err)
	}
	return NewVerifier(client, logger), nil
}

// Verify sends a short-lived data message to token and returns the FCM
// message name. A rejected token yields an error wrapping ErrTokenRejected.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenRejected)
	}

	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":    "gcmutil.verify",
			"sent_at": strconv.FormatInt(time.Now().Unix(), 10),
		},
		Android: &messaging.AndroidConfig{
			Priority: "normal",
			TTL:      &v.ttl,
		},
	}

	name, err := v.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			v.logger.Warn("FCM rejected token", "err", err)
			return "", fmt.Errorf("%w: %v", ErrTokenRejected, err)
		}
		return "", fmt.Errorf("fcm send failed: %w", err)
	}

	v.logger.Debug("Test push accepted", "message", name)
	return name, nil
}
