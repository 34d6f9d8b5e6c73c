package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepilot/sitepilot/internal/routing"
)

const base = "sites.sitepilot.dev"

func snapshotWith(entries map[string]string) *routing.Snapshot {
	return routing.NewSnapshot(entries)
}

func TestRoutingKey(t *testing.T) {
	router := &Router{BaseDomain: base}

	tests := []struct {
		name     string
		host     string
		wantKey  string
		wantSlug bool
		wantOK   bool
	}{
		{"slug under base", "acme.sites.sitepilot.dev", "acme", true, true},
		{"slug with port", "acme.sites.sitepilot.dev:8443", "acme", true, true},
		{"uppercase host", "ACME.Sites.SitePilot.Dev", "acme", true, true},
		{"custom domain", "www.example.com", "www.example.com", false, true},
		{"apex custom domain", "example.com", "example.com", false, true},
		{"base domain itself", "sites.sitepilot.dev", "sites.sitepilot.dev", false, true},
		{"nested label rejected", "a.b.sites.sitepilot.dev", "", false, false},
		{"empty host", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, isSlug, ok := router.RoutingKey(tt.host)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantSlug, isSlug)
			}
		})
	}
}

func TestRoutingKey_ShortBaseDomainNeedsFourParts(t *testing.T) {
	// With a two-part base domain, {slug}.{base} has only three parts and
	// must not resolve as a slug.
	router := &Router{BaseDomain: "pilot.dev"}
	_, _, ok := router.RoutingKey("acme.pilot.dev")
	assert.False(t, ok)
}

func TestResolve_UnpublishedSite(t *testing.T) {
	// Scenario: site slug exists but nothing published yet.
	router := &Router{BaseDomain: base}
	snap := snapshotWith(nil)

	decision := router.Resolve("acme.sites.sitepilot.dev", "/", snap)
	require.Equal(t, DecisionNotFound, decision.Status)
	assert.Equal(t, ReasonNotYetPublished, decision.Reason)
}

func TestResolve_RewriteExtensionlessPath(t *testing.T) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	decision := router.Resolve("acme.sites.sitepilot.dev", "/about", snap)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/d1/about.html", decision.Path)
	assert.Equal(t, DefaultCacheControl, decision.CacheControl)
}

func TestResolve_RewriteRoot(t *testing.T) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	for _, path := range []string{"/", ""} {
		decision := router.Resolve("acme.sites.sitepilot.dev", path, snap)
		require.Equal(t, DecisionRewrite, decision.Status)
		assert.Equal(t, "/o/t/s/deployments/d1/index.html", decision.Path)
	}
}

func TestResolve_RewriteFileWithExtension(t *testing.T) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	decision := router.Resolve("acme.sites.sitepilot.dev", "/styles.css", snap)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/d1/styles.css", decision.Path)

	decision = router.Resolve("acme.sites.sitepilot.dev", "/assets/app.v2.js", snap)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/d1/assets/app.v2.js", decision.Path)
}

func TestResolve_DotInDirectoryNotExtension(t *testing.T) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	// The dot lives in a directory segment, not the final one.
	decision := router.Resolve("acme.sites.sitepilot.dev", "/v1.2/changelog", snap)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/d1/v1.2/changelog.html", decision.Path)
}

func TestResolve_CustomDomain(t *testing.T) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"example.com": "o/t/s/deployments/d7"})

	decision := router.Resolve("example.com", "/pricing", snap)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/d7/pricing.html", decision.Path)
}

func TestResolve_UnknownHost(t *testing.T) {
	// Scenario: host neither under the base domain nor a registered custom
	// domain.
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	decision := router.Resolve("unknown.other-domain.com", "/", snap)
	require.Equal(t, DecisionNotFound, decision.Status)
	assert.Equal(t, ReasonSiteNotFound, decision.Reason)
}

func TestResolve_StaleSnapshotServesOldPrefix(t *testing.T) {
	// Scenario: publish succeeded but the routing write failed; the edge
	// keeps serving the old prefix until routing is repaired.
	router := &Router{BaseDomain: base}
	stale := snapshotWith(map[string]string{"acme": "o/t/s/deployments/old"})

	decision := router.Resolve("acme.sites.sitepilot.dev", "/", stale)
	require.Equal(t, DecisionRewrite, decision.Status)
	assert.Equal(t, "/o/t/s/deployments/old/index.html", decision.Path)
}

func BenchmarkResolve(b *testing.B) {
	router := &Router{BaseDomain: base}
	snap := snapshotWith(map[string]string{"acme": "o/t/s/deployments/d1"})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = router.Resolve("acme.sites.sitepilot.dev", "/about", snap)
	}
}
