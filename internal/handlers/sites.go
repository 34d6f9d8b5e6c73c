package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sitepilot/sitepilot/internal/config"
	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/middleware"
	"github.com/sitepilot/sitepilot/internal/models"
)

// HandleListSites returns the caller tenant's sites.
func HandleListSites(c fiber.Ctx) error {
	key := middleware.KeyFromContext(c)

	rows, err := database.DB.QueryContext(c.Context(), `
		SELECT site_id, tenant_id, slug, name, theme, created_at
		FROM site WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, key.TenantID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to query sites"})
	}
	defer func() { _ = rows.Close() }()

	sites := []models.Site{}
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.ID, &site.TenantID, &site.Slug, &site.Name, &site.Theme, &site.CreatedAt); err != nil {
			continue
		}
		sites = append(sites, site)
	}

	return c.JSON(sites)
}

// HandleCreateSite creates a site plus its default home page. The slug is
// immutable after this point; it is the routing key under the base domain.
func HandleCreateSite(c fiber.Ctx) error {
	var req CreateSiteRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slug, err := config.SanitizeSlug(req.Slug)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	name := req.Name
	if name == "" {
		name = slug
	}

	key := middleware.KeyFromContext(c)

	tx, err := database.DB.BeginTx(c.Context(), nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create site"})
	}
	defer func() { _ = tx.Rollback() }()

	var site models.Site
	err = tx.QueryRowContext(c.Context(), `
		INSERT INTO site (tenant_id, slug, name, theme)
		VALUES ($1, $2, $3, $4)
		RETURNING site_id, tenant_id, slug, name, theme, created_at
	`, key.TenantID, slug, name, req.Theme).
		Scan(&site.ID, &site.TenantID, &site.Slug, &site.Name, &site.Theme, &site.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slug is already taken"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create site"})
	}

	if _, err := tx.ExecContext(c.Context(), `
		INSERT INTO page (site_id, slug, title, layout)
		VALUES ($1, '/', $2, '{"blocks":[]}')
	`, site.ID, name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create site"})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create site"})
	}

	return c.Status(fiber.StatusCreated).JSON(site)
}

// HandleGetSite returns one site.
func HandleGetSite(c fiber.Ctx) error {
	site, err := requireSite(c)
	if site == nil {
		return err
	}
	return c.JSON(site)
}
