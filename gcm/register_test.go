package gcm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = AppIdentity{
	Package:  "com.neo.gcmutility.sample",
	CertSHA1: "38918a453d07199354f8b19af05ec6562ced5788",
	Version:  6,
}

const testSenderID = "265617351231"

func withRegisterServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	origURL := registerURL
	registerURL = srv.URL
	t.Cleanup(func() { registerURL = origURL })
	return srv
}

func TestRegister(t *testing.T) {
	device := DefaultAndroidDevice()
	srv := withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "AidLogin 123:456", r.Header.Get("Authorization"))
		assert.Equal(t, testApp.Package, r.Header.Get("app"), "app header must match package name")
		assert.Equal(t, "Android-GCM/1.5 (panther Pixel 7)", r.Header.Get("User-Agent"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, testApp.Package, r.PostForm.Get("app"))
		assert.Equal(t, testSenderID, r.PostForm.Get("sender"))
		assert.Equal(t, "123", r.PostForm.Get("device"))
		assert.Equal(t, testApp.CertSHA1, r.PostForm.Get("cert"))
		assert.Equal(t, "6", r.PostForm.Get("app_ver"))
		assert.Equal(t, fmt.Sprint(device.GMSVersion), r.PostForm.Get("gcm_ver"))
		assert.Equal(t, "GCM", r.PostForm.Get("X-scope"))
		assert.Equal(t, "abcdef01234", r.PostForm.Get("X-appid"))
		assert.Equal(t, "33", r.PostForm.Get("X-osv"))
		assert.Equal(t, fmt.Sprint(device.GMSVersion), r.PostForm.Get("X-gmsv"))
		assert.Equal(t, fmt.Sprintf("iid-%d", device.GMSVersion), r.PostForm.Get("X-cliv"))

		fmt.Fprint(w, "token=test-gcm-token-xyz \n")
	})

	token, err := register(context.Background(), srv.Client(), Credentials{AndroidID: 123, SecurityToken: 456}, device, testApp, testSenderID, "abcdef01234")
	require.NoError(t, err)
	assert.Equal(t, "test-gcm-token-xyz", token)
}

func TestRegister_Error(t *testing.T) {
	srv := withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Error=PHONE_REGISTRATION_ERROR")
	})

	_, err := register(context.Background(), srv.Client(), Credentials{AndroidID: 123, SecurityToken: 456}, DefaultAndroidDevice(), testApp, testSenderID, "abcdef01234")
	require.Error(t, err)

	var regErr *RegisterError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "PHONE_REGISTRATION_ERROR", regErr.Code)
	assert.False(t, regErr.Retryable())
	assert.Contains(t, err.Error(), "PHONE_REGISTRATION_ERROR")
}

func TestRegister_HTTPError(t *testing.T) {
	srv := withRegisterServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unavailable"))
	})

	_, err := register(context.Background(), srv.Client(), Credentials{AndroidID: 123, SecurityToken: 456}, DefaultAndroidDevice(), testApp, testSenderID, "abcdef01234")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "unavailable", httpErr.Body)
}

func TestParseRegisterResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantToken string
		wantCode  string
		wantErr   bool
	}{
		{name: "token", body: "token=abc:def", wantToken: "abc:def"},
		{name: "token with whitespace", body: "\ntoken=abc \r\n", wantToken: "abc"},
		{name: "service not available", body: "Error=SERVICE_NOT_AVAILABLE", wantCode: "SERVICE_NOT_AVAILABLE", wantErr: true},
		{name: "garbage", body: "<html>oops</html>", wantErr: true},
		{name: "empty", body: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := parseRegisterResponse(tt.body)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				return
			}
			require.Error(t, err)
			if tt.wantCode != "" {
				var regErr *RegisterError
				require.ErrorAs(t, err, &regErr)
				assert.Equal(t, tt.wantCode, regErr.Code)
				assert.True(t, regErr.Retryable())
			}
		})
	}
}

func TestGenerateInstanceID(t *testing.T) {
	seen := map[string]bool{}
	for range 20 {
		id, err := generateInstanceID()
		require.NoError(t, err)
		assert.Regexp(t, "^[0-9a-f]{11}$", id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}
