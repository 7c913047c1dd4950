package gcm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// checkinURL and registerURL are package-level vars so tests can override them.
var (
	checkinURL  = "https://android.clients.google.com/checkin"
	registerURL = "https://android.clients.google.com/c2dm/register3"
)

// HTTPError is a non-200 answer from a GCM endpoint.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gcm %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// RegisterError is an "Error=CODE" answer from register3, for example
// SERVICE_NOT_AVAILABLE or PHONE_REGISTRATION_ERROR.
type RegisterError struct {
	Code string
}

func (e *RegisterError) Error() string {
	return "gcm register: " + e.Code
}

// Retryable reports whether the server asked the client to try again later.
// This package never retries on its own.
func (e *RegisterError) Retryable() bool {
	return e.Code == "SERVICE_NOT_AVAILABLE"
}

// AppIdentity describes the application being registered.
type AppIdentity struct {
	// Package is the Android application package name.
	Package string
	// CertSHA1 is the lowercase hex SHA-1 of the APK signing certificate.
	CertSHA1 string
	// Version is the application version code.
	Version int
}

// generateInstanceID generates a random 11-character hex string for the GCM instance ID.
func generateInstanceID() (string, error) {
	b := make([]byte, 6) // 6 bytes = 12 hex chars, we take the first 11
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate instance ID: %w", err)
	}
	return hex.EncodeToString(b)[:11], nil
}

// register asks register3 for a token for senderID on behalf of app.
func register(ctx context.Context, httpClient *http.Client, creds Credentials, device AndroidDeviceInfo, app AppIdentity, senderID, instanceID string) (string, error) {
	form := url.Values{
		"app":    {app.Package},
		"sender": {senderID},
		"device": {strconv.FormatUint(creds.AndroidID, 10)},
		"cert":   {app.CertSHA1},

		"app_ver": {strconv.Itoa(app.Version)},
		"gcm_ver": {strconv.Itoa(device.GMSVersion)},
		"X-scope": {"GCM"},
		"X-appid": {instanceID},
		"X-osv":   {strconv.Itoa(device.SDKVersion)},
		"X-gmsv":  {strconv.Itoa(device.GMSVersion)},
		"X-cliv":  {"iid-" + strconv.Itoa(device.GMSVersion)},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, registerURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("gcm register: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", fmt.Sprintf("AidLogin %d:%d", creds.AndroidID, creds.SecurityToken))
	httpReq.Header.Set("User-Agent", fmt.Sprintf("Android-GCM/1.5 (%s %s)", device.Device, device.Model))
	httpReq.Header.Set("app", app.Package)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gcm register: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gcm register: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Op: "register", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return parseRegisterResponse(string(respBody))
}

func parseRegisterResponse(body string) (string, error) {
	body = strings.TrimSpace(body)
	if token, found := strings.CutPrefix(body, "token="); found {
		return strings.TrimSpace(token), nil
	}
	if code, found := strings.CutPrefix(body, "Error="); found {
		return "", &RegisterError{Code: strings.TrimSpace(code)}
	}
	return "", fmt.Errorf("gcm register: unexpected response: %s", body)
}
