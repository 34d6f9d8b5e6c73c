package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPTable writes routing entries to an edge key-value control plane over
// its HTTP API. The protocol is deliberately vendor-abstract: one PUT per
// key, bearer-token auth, 2xx means the write was accepted for replication.
// Replication to edge snapshots is asynchronous; Set returning SetUpdated
// only means the control plane acknowledged the write.
type HTTPTable struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPTable creates a client for the KV namespace rooted at endpoint.
func NewHTTPTable(endpoint, token string) *HTTPTable {
	return &HTTPTable{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Set writes one routing entry. Failures are returned as SetFailed with the
// underlying error; the caller decides whether that degrades or fails the
// surrounding operation.
func (t *HTTPTable) Set(ctx context.Context, key, value string) (SetResult, error) {
	if err := ValidateEntry(key, value); err != nil {
		return SetFailed, err
	}

	target := t.endpoint + "/values/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, strings.NewReader(value))
	if err != nil {
		return SetFailed, fmt.Errorf("failed to build KV request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return SetFailed, fmt.Errorf("KV write for %q failed: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SetFailed, fmt.Errorf("KV write for %q returned %d: %s", key, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return SetUpdated, nil
}

// Delete removes a routing entry from the namespace.
func (t *HTTPTable) Delete(ctx context.Context, key string) error {
	target := t.endpoint + "/values/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build KV request: %w", err)
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("KV delete for %q failed: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Deleting an absent key is a no-op success.
	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("KV delete for %q returned %d", key, resp.StatusCode)
	}
	return nil
}
