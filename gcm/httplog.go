package gcm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// loggingHTTPClient returns the Client's HTTP client wrapped with request/response
// logging if the logger is at Debug level, otherwise returns it as-is.
func (c *Client) loggingHTTPClient() *http.Client {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return c.httpClient
	}
	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Transport: &loggingRoundTripper{inner: transport, logger: c.logger},
		Timeout:   c.httpClient.Timeout,
	}
}

// loggingRoundTripper logs one record per request and one per response.
// The Authorization header is masked because it carries the device
// security token.
type loggingRoundTripper struct {
	inner  http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	reqLen := 0
	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
		reqLen = len(body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	t.logger.Debug("GCM request",
		"method", req.Method,
		"url", req.URL.String(),
		"body_length", reqLen,
		headerGroup(req.Header),
	)

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		t.logger.Debug("GCM request failed", "url", req.URL.String(), "elapsed", time.Since(start), "error", err)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	t.logger.Debug("GCM response",
		"status", resp.StatusCode,
		"url", req.URL.String(),
		"elapsed", time.Since(start),
		"body", truncate(string(body), 200),
	)
	return resp, nil
}

func headerGroup(h http.Header) slog.Attr {
	attrs := make([]any, 0, len(h))
	for k, v := range h {
		val := strings.Join(v, ", ")
		if strings.EqualFold(k, "Authorization") {
			val = maskAuthorization(val)
		}
		attrs = append(attrs, slog.String(k, val))
	}
	return slog.Group("headers", attrs...)
}

// maskAuthorization keeps the scheme and the android ID of an AidLogin
// header and hides the security token.
func maskAuthorization(v string) string {
	scheme, rest, ok := strings.Cut(v, " ")
	if !ok {
		return "***"
	}
	id, _, ok := strings.Cut(rest, ":")
	if !ok {
		return scheme + " ***"
	}
	return scheme + " " + id + ":***"
}
