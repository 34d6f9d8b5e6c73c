// Package handlers implements the management HTTP API. Handlers follow one
// shape: bind, authorize against the API key's tenant, call into the owning
// package, translate its errors to status codes.
package handlers

import (
	"context"
	"database/sql"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/middleware"
	"github.com/sitepilot/sitepilot/internal/models"
)

func getSite(ctx context.Context, siteID uuid.UUID) (*models.Site, error) {
	var site models.Site
	err := database.DB.QueryRowContext(ctx, `
		SELECT site_id, tenant_id, slug, name, theme, created_at
		FROM site WHERE site_id = $1
	`, siteID).Scan(&site.ID, &site.TenantID, &site.Slug, &site.Name, &site.Theme, &site.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// requireSite resolves the :site_id route param to a site the caller's API
// key may act on. On failure the response is already written and the
// returned error (possibly nil) must be propagated.
func requireSite(c fiber.Ctx) (*models.Site, error) {
	siteID, err := uuid.Parse(c.Params("site_id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid site id"})
	}

	site, err := getSite(c.Context(), siteID)
	if err == sql.ErrNoRows {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
	}
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load site"})
	}

	key := middleware.KeyFromContext(c)
	if key == nil || key.TenantID != site.TenantID {
		// 403 with no side effects: the site exists but belongs to
		// someone else.
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Site belongs to another tenant"})
	}

	return site, nil
}

// requireSiteDomain additionally resolves :domain_id and checks it belongs
// to the site.
func requireSiteDomain(c fiber.Ctx) (*models.Site, uuid.UUID, error) {
	site, err := requireSite(c)
	if site == nil {
		return nil, uuid.Nil, err
	}

	domainID, err := uuid.Parse(c.Params("domain_id"))
	if err != nil {
		return nil, uuid.Nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid domain id"})
	}

	var one int
	err = database.DB.QueryRowContext(c.Context(), `
		SELECT 1 FROM custom_domain WHERE domain_id = $1 AND site_id = $2
	`, domainID, site.ID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, uuid.Nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Domain not found"})
	}
	if err != nil {
		return nil, uuid.Nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load domain"})
	}

	return site, domainID, nil
}
