package edge

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/sitepilot/sitepilot/internal/routing"
)

// SnapshotProvider returns the current routing snapshot. Replication swaps
// the snapshot out-of-band; the handler never blocks waiting for it.
type SnapshotProvider func() *routing.Snapshot

// Server serves viewer traffic the way the edge runtime does: resolve
// against the local snapshot, rewrite, and fetch from the origin root. It
// backs local previews and self-hosted single-node installs.
type Server struct {
	router   *Router
	snapshot SnapshotProvider
	origin   string // filesystem root mirroring the deployment store layout
}

// NewServer creates an edge server over a filesystem origin.
func NewServer(baseDomain, originRoot string, provider SnapshotProvider) *Server {
	return &Server{
		router:   &Router{BaseDomain: baseDomain},
		snapshot: provider,
		origin:   originRoot,
	}
}

// Handler is the fasthttp entry point, one invocation per viewer request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	host := string(ctx.Host())
	path := string(ctx.Path())

	decision := s.router.Resolve(host, path, s.snapshot())
	if decision.Status == DecisionNotFound {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString(decision.Reason)
		return
	}

	body, err := os.ReadFile(filepath.Join(s.origin, filepath.FromSlash(strings.TrimPrefix(decision.Path, "/"))))
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("object missing at origin")
		return
	}

	ctx.SetContentType(contentTypeFor(decision.Path))
	if len(ctx.Request.Header.Peek(fasthttp.HeaderCacheControl)) == 0 {
		ctx.Response.Header.Set(fasthttp.HeaderCacheControl, decision.CacheControl)
	}
	ctx.SetBody(body)
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(path, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		return "application/javascript; charset=utf-8"
	case strings.HasSuffix(path, ".json"):
		return "application/json; charset=utf-8"
	case strings.HasSuffix(path, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
