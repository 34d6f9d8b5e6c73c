package models

import (
	"time"

	"github.com/google/uuid"
)

// Site is a tenant-owned logical website. The slug is the immutable routing
// key under the base domain; changing it after creation would orphan routing
// table entries, so there is no update path for it.
type Site struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Theme     *string   `json:"theme,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of a site. The layout document is opaque to this
// subsystem; the renderer turns it into static assets.
type Page struct {
	ID          uuid.UUID `json:"id"`
	SiteID      uuid.UUID `json:"site_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Layout      []byte    `json:"-"`
	IsPublished bool      `json:"is_published"`
}
