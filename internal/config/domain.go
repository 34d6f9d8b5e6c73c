package config

import (
	"fmt"
	"net/url"
	"strings"
)

// SanitizeDomain validates and normalizes a custom domain value.
// It returns the hostname in lowercase, with any scheme removed.
// Ports, paths, queries, fragments, wildcards, and empty values are rejected.
func SanitizeDomain(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", fmt.Errorf("domain cannot be empty")
	}

	cleaned = strings.ToLower(cleaned)

	// Remove optional scheme prefix
	cleaned = strings.TrimPrefix(cleaned, "http://")
	cleaned = strings.TrimPrefix(cleaned, "https://")

	// Remove a single trailing slash (root path)
	cleaned = strings.TrimSuffix(cleaned, "/")

	if strings.ContainsAny(cleaned, " \t\r\n") {
		return "", fmt.Errorf("domain cannot contain whitespace")
	}
	if strings.Contains(cleaned, "*") {
		return "", fmt.Errorf("wildcards are not allowed in custom domains")
	}

	// Use url.Parse to validate the host without allowing paths or queries.
	u, err := url.Parse("http://" + cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid domain format")
	}

	if u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("domain must not include path, query, or fragment")
	}
	if u.Port() != "" {
		return "", fmt.Errorf("domain must not include a port")
	}
	if !strings.Contains(u.Hostname(), ".") {
		return "", fmt.Errorf("domain must include at least one dot")
	}

	return u.Hostname(), nil
}

// SanitizeSlug validates a site slug: the immutable routing key under the
// base domain. Lowercase letters, digits, and hyphens only; no leading or
// trailing hyphen.
func SanitizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}
	if len(slug) > 63 {
		return "", fmt.Errorf("slug cannot exceed 63 characters")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return "", fmt.Errorf("slug cannot start or end with a hyphen")
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return "", fmt.Errorf("slug may only contain lowercase letters, digits, and hyphens")
		}
	}
	return slug, nil
}
