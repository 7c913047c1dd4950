package verify_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/neodroidpune/GCMUtility/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerify_Mock(t *testing.T) {
	logger := newTestLogger()
	ctx := context.Background()

	t.Run("Happy Path", func(t *testing.T) {
		mockClient := new(MockClient)
		v := verify.NewVerifier(mockClient, logger)

		mockClient.On("Send", ctx, mock.MatchedBy(func(msg *messaging.Message) bool {
			return msg.Token == "TOKEN-A" && msg.Data["type"] == "gcmutil.verify" && msg.Android != nil
		})).Return("projects/p/messages/1", nil)

		name, err := v.Verify(ctx, "TOKEN-A")
		require.NoError(t, err)
		assert.Equal(t, "projects/p/messages/1", name)
		mockClient.AssertExpectations(t)
	})

	t.Run("Transport Failure", func(t *testing.T) {
		mockClient := new(MockClient)
		v := verify.NewVerifier(mockClient, logger)
		mockClient.On("Send", ctx, mock.Anything).Return("", errors.New("network down"))

		_, err := v.Verify(ctx, "TOKEN-A")
		require.Error(t, err)
		assert.NotErrorIs(t, err, verify.ErrTokenRejected)
		assert.Contains(t, err.Error(), "fcm send failed")
	})

	t.Run("Empty Token", func(t *testing.T) {
		mockClient := new(MockClient)
		v := verify.NewVerifier(mockClient, logger)

		_, err := v.Verify(ctx, "")
		assert.ErrorIs(t, err, verify.ErrTokenRejected)
		mockClient.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

// fcmServer answers messages:send with the given status and body.
func fcmServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/demo-project/messages:send", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFirebaseVerifier(t *testing.T, srv *httptest.Server) *verify.Verifier {
	t.Helper()
	v, err := verify.New(context.Background(), "demo-project", newTestLogger(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return v
}

func TestVerify_Firebase(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepted", func(t *testing.T) {
		srv := fcmServer(t, http.StatusOK, `{"name":"projects/demo-project/messages/42"}`)
		name, err := newFirebaseVerifier(t, srv).Verify(ctx, "TOKEN-A")
		require.NoError(t, err)
		assert.Equal(t, "projects/demo-project/messages/42", name)
	})

	t.Run("Unregistered", func(t *testing.T) {
		srv := fcmServer(t, http.StatusNotFound, `{"error":{"status":"NOT_FOUND","message":"Requested entity was not found.",
			"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`)
		_, err := newFirebaseVerifier(t, srv).Verify(ctx, "TOKEN-A")
		assert.ErrorIs(t, err, verify.ErrTokenRejected)
	})

	t.Run("Invalid Argument", func(t *testing.T) {
		srv := fcmServer(t, http.StatusBadRequest, `{"error":{"status":"INVALID_ARGUMENT","message":"The registration token is not a valid FCM registration token",
			"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"INVALID_ARGUMENT"}]}}`)
		_, err := newFirebaseVerifier(t, srv).Verify(ctx, "garbage")
		assert.ErrorIs(t, err, verify.ErrTokenRejected)
	})

	t.Run("Permission Denied", func(t *testing.T) {
		srv := fcmServer(t, http.StatusForbidden, `{"error":{"status":"PERMISSION_DENIED","message":"SenderId mismatch",
			"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"SENDER_ID_MISMATCH"}]}}`)
		_, err := newFirebaseVerifier(t, srv).Verify(ctx, "TOKEN-A")
		require.Error(t, err)
		assert.NotErrorIs(t, err, verify.ErrTokenRejected)
	})
}
