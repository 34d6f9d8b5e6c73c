// Package publisher turns a site's pages into an immutable static
// deployment: render, upload under a fresh prefix, point routing at it,
// and flip the active deployment in one transaction.
package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/sitepilot/sitepilot/internal/models"
)

// Asset is one rendered file of a deployment.
type Asset struct {
	Path        string
	Body        []byte
	ContentType string
}

// Renderer turns a site and its pages into static assets. Implementations
// must be pure: same input, same assets, no I/O.
type Renderer interface {
	Render(site *models.Site, pages []models.Page) ([]Asset, error)
}

// block is one element of a page layout document.
type block struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Src  string `json:"src,omitempty"`
	Alt  string `json:"alt,omitempty"`
	URL  string `json:"url,omitempty"`
}

type layoutDoc struct {
	Blocks []block `json:"blocks"`
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/styles.css">
</head>
<body data-site="{{.SiteSlug}}">
<main>
{{- range .Blocks}}
{{- if eq .Type "heading"}}
<h1>{{.Text}}</h1>
{{- else if eq .Type "text"}}
<p>{{.Text}}</p>
{{- else if eq .Type "image"}}
<img src="{{.Src}}" alt="{{.Alt}}">
{{- else if eq .Type "button"}}
<a class="button" href="{{.URL}}">{{.Text}}</a>
{{- end}}
{{- end}}
</main>
<script src="/script.js" defer></script>
</body>
</html>
`))

const baseStylesheet = `:root{--fg:#1a1a2e;--bg:#ffffff;--accent:#2563eb}
body{margin:0;font-family:system-ui,sans-serif;color:var(--fg);background:var(--bg)}
main{max-width:48rem;margin:0 auto;padding:2rem 1rem}
img{max-width:100%;height:auto}
.button{display:inline-block;padding:.6rem 1.2rem;border-radius:.4rem;background:var(--accent);color:#fff;text-decoration:none}
`

const baseScript = `document.addEventListener("DOMContentLoaded",function(){
  if(!navigator.sendBeacon)return;
  var site=document.body.dataset.site;
  navigator.sendBeacon("/api/ingest",JSON.stringify({type:"enter",site:site,path:location.pathname}));
  addEventListener("pagehide",function(){
    navigator.sendBeacon("/api/ingest",JSON.stringify({type:"exit",site:site,path:location.pathname}));
  });
});
`

// SiteRenderer is the builtin renderer: every block type the layout editor
// emits maps onto a template fragment; unknown block types are skipped
// rather than failing the publish.
type SiteRenderer struct{}

// Render produces one HTML document per page plus the shared stylesheet and
// beacon script. The page with slug "/" (or the first page when none has
// it) becomes index.html; any other page lands at {slug}.html, matching the
// edge rewrite of extensionless paths.
func (SiteRenderer) Render(site *models.Site, pages []models.Page) ([]Asset, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("site %s has no pages to render", site.ID)
	}

	home := 0
	for i, p := range pages {
		if p.Slug == "/" {
			home = i
			break
		}
	}

	assets := make([]Asset, 0, len(pages)+2)
	for i, page := range pages {
		body, err := renderPage(site, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %q: %w", page.Slug, err)
		}
		path := page.Slug + ".html"
		if i == home {
			path = "index.html"
		}
		assets = append(assets, Asset{Path: path, Body: body, ContentType: "text/html; charset=utf-8"})
	}

	assets = append(assets,
		Asset{Path: "styles.css", Body: []byte(baseStylesheet), ContentType: "text/css; charset=utf-8"},
		Asset{Path: "script.js", Body: []byte(baseScript), ContentType: "text/javascript; charset=utf-8"},
	)
	return assets, nil
}

func renderPage(site *models.Site, page *models.Page) ([]byte, error) {
	var doc layoutDoc
	if len(page.Layout) > 0 {
		if err := json.Unmarshal(page.Layout, &doc); err != nil {
			return nil, fmt.Errorf("invalid layout document: %w", err)
		}
	}

	title := page.Title
	if title == "" {
		title = site.Name
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title    string
		SiteSlug string
		Blocks   []block
	}{Title: title, SiteSlug: site.Slug, Blocks: doc.Blocks})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
