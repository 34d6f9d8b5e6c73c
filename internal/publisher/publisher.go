package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/logging"
	"github.com/sitepilot/sitepilot/internal/models"
	"github.com/sitepilot/sitepilot/internal/routing"
	"github.com/sitepilot/sitepilot/internal/storage"
)

var (
	// ErrSiteNotFound means the site row does not exist.
	ErrSiteNotFound = errors.New("site not found")
	// ErrNoPages rejects publishing a site with nothing to render.
	ErrNoPages = errors.New("site has no pages")
)

// Publisher executes the publish pipeline. Store writes must all succeed
// before the routing table learns the new prefix; a routing write failure
// degrades the result instead of failing it.
type Publisher struct {
	Store    storage.ObjectStore
	Table    routing.Table
	Renderer Renderer

	// OwnerID is the installation-level namespace in storage keys.
	OwnerID string
	// BaseDomain hosts site slugs, e.g. "sites.sitepilot.dev".
	BaseDomain string
}

// PublishOptions carries caller-supplied publish metadata.
type PublishOptions struct {
	// DeploymentName is a free-form label surfaced in logs only; the
	// deployment identity is always a fresh UUID.
	DeploymentName string
}

// PublishResult reports one completed publish. KVSUpdated false means the
// assets are uploaded and the deployment is active, but the routing entry
// write failed and the site is not yet live at the new prefix.
type PublishResult struct {
	DeploymentID  uuid.UUID `json:"deploymentId"`
	StoragePrefix string    `json:"s3Prefix"`
	KVSUpdated    bool      `json:"kvsUpdated"`
	SiteURL       string    `json:"siteUrl"`
	LiveURL       string    `json:"liveUrl"`
}

// Publish renders the site, uploads the assets under a fresh deployment
// prefix, points routing at it, and atomically flips the active deployment.
// Store-then-route ordering is the correctness invariant: the routing table
// must never reference a prefix that is not fully written.
func (p *Publisher) Publish(ctx context.Context, siteID uuid.UUID, opts PublishOptions) (*PublishResult, error) {
	site, pages, err := loadSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	assets, err := p.Renderer.Render(site, pages)
	if err != nil {
		return nil, fmt.Errorf("failed to render site: %w", err)
	}

	deploymentID := uuid.New()
	prefix := storage.DeploymentPrefix(p.OwnerID, site.TenantID.String(), site.ID.String(), deploymentID.String())

	// Any single upload failure aborts the publish. An already-uploaded
	// partial prefix is an unreferenced leak, not a correctness problem.
	for _, asset := range assets {
		if err := p.Store.Put(ctx, storage.ObjectKey(prefix, asset.Path), asset.Body, asset.ContentType); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", asset.Path, err)
		}
	}

	kvsUpdated := true
	if result, err := p.Table.Set(ctx, site.Slug, prefix); err != nil || result == routing.SetFailed {
		kvsUpdated = false
		logging.L().Warn("routing update failed; deployment uploaded but not yet live",
			zap.String("site", site.Slug),
			zap.String("deployment_id", deploymentID.String()),
			zap.Error(err))
	}

	if err := activateDeployment(ctx, site.ID, deploymentID, prefix, kvsUpdated); err != nil {
		return nil, err
	}

	logging.L().Info("site published",
		zap.String("site", site.Slug),
		zap.String("deployment_id", deploymentID.String()),
		zap.String("name", opts.DeploymentName),
		zap.Int("assets", len(assets)),
		zap.Bool("kvs_updated", kvsUpdated))

	siteURL := fmt.Sprintf("https://%s.%s", site.Slug, p.BaseDomain)
	return &PublishResult{
		DeploymentID:  deploymentID,
		StoragePrefix: prefix,
		KVSUpdated:    kvsUpdated,
		SiteURL:       siteURL,
		LiveURL:       p.liveURL(ctx, site, siteURL),
	}, nil
}

func loadSite(ctx context.Context, siteID uuid.UUID) (*models.Site, []models.Page, error) {
	var site models.Site
	err := database.DB.QueryRowContext(ctx, `
		SELECT site_id, tenant_id, slug, name, theme, created_at
		FROM site WHERE site_id = $1
	`, siteID).Scan(&site.ID, &site.TenantID, &site.Slug, &site.Name, &site.Theme, &site.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load site: %w", err)
	}

	rows, err := database.DB.QueryContext(ctx, `
		SELECT page_id, site_id, slug, title, layout, is_published
		FROM page WHERE site_id = $1
		ORDER BY created_at, slug
	`, siteID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []models.Page
	for rows.Next() {
		var page models.Page
		if err := rows.Scan(&page.ID, &page.SiteID, &page.Slug, &page.Title, &page.Layout, &page.IsPublished); err != nil {
			return nil, nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read pages: %w", err)
	}

	return &site, pages, nil
}

// activateDeployment flips the active deployment in one transaction. The
// partial unique index on (site_id) WHERE is_active backs this up under
// concurrent publishes: the transaction that commits second sees the
// deactivation of the first, never two actives.
func activateDeployment(ctx context.Context, siteID, deploymentID uuid.UUID, prefix string, kvsUpdated bool) error {
	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE deployment SET is_active = FALSE WHERE site_id = $1 AND is_active
	`, siteID); err != nil {
		return fmt.Errorf("failed to deactivate prior deployments: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO deployment (deployment_id, site_id, storage_prefix, is_active, kvs_updated)
		VALUES ($1, $2, $3, TRUE, $4)
	`, deploymentID, siteID, prefix, kvsUpdated); err != nil {
		return fmt.Errorf("failed to insert deployment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE page SET is_published = TRUE WHERE site_id = $1
	`, siteID); err != nil {
		return fmt.Errorf("failed to mark pages published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit publish: %w", err)
	}
	return nil
}

// liveURL prefers an ACTIVE custom domain over the slug URL. Lookup failure
// falls back silently; the slug URL is always correct.
func (p *Publisher) liveURL(ctx context.Context, site *models.Site, siteURL string) string {
	var domain string
	err := database.DB.QueryRowContext(ctx, `
		SELECT domain FROM custom_domain
		WHERE site_id = $1 AND status = 'ACTIVE'
		ORDER BY activated_at DESC
		LIMIT 1
	`, site.ID).Scan(&domain)
	if err != nil {
		return siteURL
	}
	return "https://" + domain
}
