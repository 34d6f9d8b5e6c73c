// Package edge implements the per-request routing function executed at the
// network edge before origin fetch. It resolves an inbound hostname to a
// routing key, looks the key up in a local read-only snapshot, and rewrites
// the request path to the active deployment's storage prefix.
//
// The function runs on every viewer request globally under a sub-millisecond
// budget with no network or async calls, so Resolve is a pure single-pass
// function over string slicing and one map lookup. State is injected as a
// Snapshot at invocation time and refreshed out-of-band by replication.
package edge

// DefaultCacheControl is attached when the request carries no cache policy.
const DefaultCacheControl = "public, max-age=60, stale-while-revalidate=600"

// Not-found reasons surfaced in the synthesized 404 body.
const (
	ReasonSiteNotFound    = "site not found"
	ReasonNotYetPublished = "not yet published"
)

// DecisionStatus tags the outcome of a resolution.
type DecisionStatus uint8

const (
	// DecisionNotFound synthesizes a 404 at the edge; the request never
	// reaches the origin.
	DecisionNotFound DecisionStatus = iota
	// DecisionRewrite forwards the request with Path substituted in.
	DecisionRewrite
)

// Decision is the router's complete output for one request.
type Decision struct {
	Status       DecisionStatus
	Path         string // rewritten origin path, set when Status == DecisionRewrite
	CacheControl string // default cache policy to attach if the request has none
	Reason       string // 404 reason, set when Status == DecisionNotFound
}

// Lookuper is the read-only snapshot view the router resolves against.
type Lookuper interface {
	Lookup(key string) (string, bool)
}

// Router holds the fixed base domain under which site slugs resolve.
type Router struct {
	// BaseDomain is lowercase without leading dot, e.g. "sites.sitepilot.dev".
	BaseDomain string
}

// RoutingKey derives the routing key from a Host header value. A single
// subdomain label under the base domain yields the site slug; any other
// host is itself the key, to be matched as a registered custom domain.
// The second return distinguishes slug keys from custom-domain keys, and
// the third reports whether a key could be derived at all.
func (r *Router) RoutingKey(host string) (key string, isSlug bool, ok bool) {
	host = trimPort(host)
	if host == "" {
		return "", false, false
	}
	host = lowerASCII(host)

	base := r.BaseDomain
	if n := len(host) - len(base); n > 1 && host[n-1] == '.' && host[n:] == base {
		label := host[:n-1]
		// Subdomain routing needs at least four dot-separated parts in
		// total: one slug label under a base domain of three or more.
		if countDots(host) < 3 {
			return "", false, false
		}
		// Exactly one label; deeper subdomains are not routable.
		if label == "" || countDots(label) > 0 {
			return "", false, false
		}
		return label, true, true
	}

	// Hosts under the base domain that failed the label rules are never
	// custom domains; everything else is tried as one.
	return host, false, true
}

// Resolve maps one request to a rewrite or a synthesized 404. It performs
// no I/O and allocates only when assembling the rewritten path.
func (r *Router) Resolve(host, path string, snap Lookuper) Decision {
	key, isSlug, ok := r.RoutingKey(host)
	if !ok {
		return Decision{Status: DecisionNotFound, Reason: ReasonSiteNotFound}
	}

	prefix, found := snap.Lookup(key)
	if !found {
		// A slug that derives cleanly but has no entry is a site that has
		// never been published; an unknown custom domain is simply unknown.
		if isSlug {
			return Decision{Status: DecisionNotFound, Reason: ReasonNotYetPublished}
		}
		return Decision{Status: DecisionNotFound, Reason: ReasonSiteNotFound}
	}

	return Decision{
		Status:       DecisionRewrite,
		Path:         rewritePath(prefix, path),
		CacheControl: DefaultCacheControl,
	}
}

// rewritePath applies the rewrite contract:
// root -> /{prefix}/index.html; extensionless -> /{prefix}{path}.html;
// path with extension -> /{prefix}{path} verbatim.
func rewritePath(prefix, path string) string {
	if path == "" || path == "/" {
		return "/" + prefix + "/index.html"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	if hasExtension(path) {
		return "/" + prefix + path
	}
	return "/" + prefix + path + ".html"
}

// hasExtension reports whether the final path segment contains a dot.
func hasExtension(path string) bool {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return true
		case '/':
			return false
		}
	}
	return false
}

// trimPort strips a :port suffix without allocating.
func trimPort(host string) string {
	for i := len(host) - 1; i >= 0; i-- {
		c := host[i]
		if c == ':' {
			return host[:i]
		}
		if c < '0' || c > '9' {
			return host
		}
	}
	return host
}

// lowerASCII lowercases a hostname; returns the input unchanged (and
// unallocated) when it is already lowercase, the common case.
func lowerASCII(s string) string {
	lower := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			lower = false
			break
		}
	}
	if lower {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}

func countDots(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			n++
		}
	}
	return n
}
