package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPCDN drives the CDN control plane over its HTTP API. The protocol
// mirrors the edge KV one: PUT to create, DELETE to remove, bearer-token
// auth. 200 on a PUT means the resource already existed, 201 means it was
// created; both are success, distinguished only by the returned flag.
type HTTPCDN struct {
	endpoint string
	token    string
	// targetBase is the hostname suffix customer CNAMEs point at,
	// e.g. "cdn.sitepilot.dev".
	targetBase string
	client     *http.Client
}

// NewHTTPCDN creates a control-plane client rooted at endpoint.
func NewHTTPCDN(endpoint, token, targetBase string) *HTTPCDN {
	return &HTTPCDN{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		token:      token,
		targetBase: strings.Trim(targetBase, "."),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPCDN) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode CDN request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build CDN request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func cdnError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("CDN %s returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(detail)))
}

// EnsureTenant creates the tenant's distribution configuration if it does
// not exist yet.
func (c *HTTPCDN) EnsureTenant(ctx context.Context, tenantID string) (bool, error) {
	resp, err := c.do(ctx, http.MethodPut, "/tenants/"+url.PathEscape(tenantID), nil)
	if err != nil {
		return false, fmt.Errorf("CDN tenant request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, cdnError("tenant create", resp)
	}
}

// AttachDomain binds a domain and its certificate to the tenant's
// distribution. Attaching a domain that is already attached reports
// success with the flag set; 409 from the control plane means the same.
func (c *HTTPCDN) AttachDomain(ctx context.Context, tenantID, domain, certificateARN string) (bool, error) {
	path := "/tenants/" + url.PathEscape(tenantID) + "/domains/" + url.PathEscape(strings.ToLower(domain))
	resp, err := c.do(ctx, http.MethodPut, path, map[string]string{"certificate_arn": certificateARN})
	if err != nil {
		return false, fmt.Errorf("CDN attach request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusCreated:
		return false, nil
	case http.StatusOK, http.StatusConflict:
		return true, nil
	default:
		return false, cdnError("domain attach", resp)
	}
}

// DetachDomain removes a domain binding. Detaching an absent domain is a
// no-op success.
func (c *HTTPCDN) DetachDomain(ctx context.Context, tenantID, domain string) error {
	path := "/tenants/" + url.PathEscape(tenantID) + "/domains/" + url.PathEscape(strings.ToLower(domain))
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("CDN detach request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return cdnError("domain detach", resp)
	}
	return nil
}

// TargetFor returns the per-tenant CNAME target.
func (c *HTTPCDN) TargetFor(tenantID string) string {
	return tenantID + "." + c.targetBase
}
