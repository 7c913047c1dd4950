package gcm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	gcmutility "github.com/neodroidpune/GCMUtility"
	"github.com/neodroidpune/GCMUtility/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *prefs.Preferences {
	t.Helper()
	p, err := prefs.New(prefs.NewMemoryBackend(), "GCM_DEVICE")
	require.NoError(t, err)
	return p
}

// fakeGCM serves both checkin and register3 and counts calls.
type fakeGCM struct {
	checkins  atomic.Int32
	registers atomic.Int32
	appIDs    []string
}

func (f *fakeGCM) start(t *testing.T) *http.Client {
	srv := withCheckinServer(t, func(w http.ResponseWriter, r *http.Request) {
		f.checkins.Add(1)
		w.Write(checkinResponse(4242, 8484))
	})
	withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := f.registers.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "AidLogin 4242:8484", r.Header.Get("Authorization"))
		f.appIDs = append(f.appIDs, r.PostForm.Get("X-appid"))
		fmt.Fprintf(w, "token=TOKEN-%d", n)
	})
	return srv.Client()
}

func TestClient_RegisterChecksInOnce(t *testing.T) {
	var fake fakeGCM
	httpClient := fake.start(t)
	store := newTestStore(t)

	c := NewClient(testApp, WithHTTPClient(httpClient), WithCredentialStore(store))

	token, err := c.Register(context.Background(), testSenderID)
	require.NoError(t, err)
	assert.Equal(t, "TOKEN-1", token)

	token, err = c.Register(context.Background(), testSenderID)
	require.NoError(t, err)
	assert.Equal(t, "TOKEN-2", token)

	assert.Equal(t, int32(1), fake.checkins.Load(), "credentials are reused after the first checkin")
	assert.Equal(t, int32(2), fake.registers.Load())
	assert.Equal(t, Credentials{AndroidID: 4242, SecurityToken: 8484}, c.Credentials())

	require.Len(t, fake.appIDs, 2)
	assert.Equal(t, fake.appIDs[0], fake.appIDs[1], "instance ID is stable")

	id, ok, err := store.GetUint64(context.Background(), KeyAndroidID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(4242), id)
	storedAppID, ok, err := store.GetString(context.Background(), KeyInstanceID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fake.appIDs[0], storedAppID)
}

func TestClient_ReusesStoredCredentials(t *testing.T) {
	var fake fakeGCM
	httpClient := fake.start(t)
	store := newTestStore(t)
	require.NoError(t, store.Edit().
		PutUint64(KeyAndroidID, 4242).
		PutUint64(KeySecurityToken, 8484).
		PutString(KeyInstanceID, "0123456789a").
		Commit(context.Background()))

	c := NewClient(testApp, WithHTTPClient(httpClient), WithCredentialStore(store))
	token, err := c.Register(context.Background(), testSenderID)
	require.NoError(t, err)
	assert.Equal(t, "TOKEN-1", token)

	assert.Equal(t, int32(0), fake.checkins.Load(), "stored credentials skip checkin")
	assert.Equal(t, []string{"0123456789a"}, fake.appIDs)
}

func TestClient_Checkin(t *testing.T) {
	var fake fakeGCM
	httpClient := fake.start(t)
	store := newTestStore(t)

	c := NewClient(testApp, WithHTTPClient(httpClient), WithCredentialStore(store))
	creds, err := c.Checkin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{AndroidID: 4242, SecurityToken: 8484}, creds)
	assert.Equal(t, int32(1), fake.checkins.Load())
	assert.Equal(t, int32(0), fake.registers.Load())

	tok, ok, err := store.GetUint64(context.Background(), KeySecurityToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(8484), tok)
}

func TestClient_CheckinFailure(t *testing.T) {
	withCheckinServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	var registers atomic.Int32
	srv := withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		registers.Add(1)
	})

	c := NewClient(testApp, WithHTTPClient(srv.Client()))
	_, err := c.Register(context.Background(), testSenderID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkin")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, int32(0), registers.Load())
}

func TestClient_RegisterEmptySender(t *testing.T) {
	c := NewClient(testApp)
	_, err := c.Register(context.Background(), "")
	assert.ErrorIs(t, err, gcmutility.ErrEmptySenderID)
}

func TestClient_RegisterEmptyToken(t *testing.T) {
	withCheckinServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(checkinResponse(1, 2))
	})
	srv := withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "token=")
	})

	c := NewClient(testApp, WithHTTPClient(srv.Client()))
	_, err := c.Register(context.Background(), testSenderID)
	assert.ErrorIs(t, err, gcmutility.ErrEmptyToken)
}

func TestClient_Availability(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AndroidDeviceInfo)
		want   gcmutility.ServiceStatus
	}{
		{name: "default device", modify: func(*AndroidDeviceInfo) {}, want: gcmutility.ServiceSuccess},
		{name: "no play services", modify: func(d *AndroidDeviceInfo) { d.GMSVersion = 0 }, want: gcmutility.ServiceMissing},
		{name: "disabled", modify: func(d *AndroidDeviceInfo) { d.ServicesDisabled = true }, want: gcmutility.ServiceDisabled},
		{name: "outdated", modify: func(d *AndroidDeviceInfo) { d.GMSVersion = 3000000 }, want: gcmutility.ServiceVersionUpdateRequired},
		{name: "pre-froyo", modify: func(d *AndroidDeviceInfo) { d.SDKVersion = 7 }, want: gcmutility.ServiceInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := DefaultAndroidDevice()
			tt.modify(&device)
			c := NewClient(testApp, WithDevice(device))
			assert.Equal(t, tt.want, c.Availability(context.Background()))
		})
	}
}

func TestClient_MinGMSVersion(t *testing.T) {
	c := NewClient(testApp, WithMinGMSVersion(300000000))
	assert.Equal(t, gcmutility.ServiceVersionUpdateRequired, c.Availability(context.Background()))
}

func TestClient_DebugLoggingMasksSecurityToken(t *testing.T) {
	var fake fakeGCM
	httpClient := fake.start(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := NewClient(testApp, WithHTTPClient(httpClient), WithLogger(logger))
	_, err := c.Register(context.Background(), testSenderID)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "GCM request")
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "AidLogin 4242:***")
	assert.NotContains(t, out, "4242:8484")
}

func TestClient_ManagerFlow(t *testing.T) {
	var fake fakeGCM
	httpClient := fake.start(t)

	client := NewClient(testApp, WithHTTPClient(httpClient), WithCredentialStore(newTestStore(t)))
	cache, err := prefs.New(prefs.NewMemoryBackend(), prefs.DefaultNamespace)
	require.NoError(t, err)

	mgr := gcmutility.NewManager(client, cache, gcmutility.StaticVersion(testApp.Version), gcmutility.WithAvailability(client))

	res, err := mgr.Register(context.Background(), testSenderID).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TOKEN-1", res.Token)
	assert.False(t, res.Cached)

	res, err = mgr.Register(context.Background(), testSenderID).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TOKEN-1", res.Token)
	assert.True(t, res.Cached)
	assert.Equal(t, int32(1), fake.registers.Load())
}

func TestMaskAuthorization(t *testing.T) {
	assert.Equal(t, "AidLogin 1:***", maskAuthorization("AidLogin 1:2"))
	assert.Equal(t, "AidLogin ***", maskAuthorization("AidLogin 12"))
	assert.Equal(t, "***", maskAuthorization("garbage"))
}
