package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v3"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/geoip"
)

// IngestRequest is the beacon payload emitted by published sites.
type IngestRequest struct {
	Type string `json:"type"`
	Site string `json:"site"`
	Path string `json:"path"`
}

// HandleIngest records enter/exit beacons from published sites. The
// endpoint is public (beacons come from visitors' browsers) and answers
// 204 as fast as possible; country comes from the connecting IP.
func HandleIngest(c fiber.Ctx) error {
	var req IngestRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid beacon payload"})
	}

	if req.Type != "enter" && req.Type != "exit" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown beacon type"})
	}
	if req.Site == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing site"})
	}
	if req.Path == "" {
		req.Path = "/"
	}

	var siteID string
	err := database.DB.QueryRowContext(c.Context(), `
		SELECT site_id FROM site WHERE slug = $1
	`, req.Site).Scan(&siteID)
	if err == sql.ErrNoRows {
		// Unknown slugs are dropped silently; beacons from deleted sites
		// are expected traffic, not an error worth a retry.
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record event"})
	}

	country := geoip.Country(c.IP())

	if _, err := database.DB.ExecContext(c.Context(), `
		INSERT INTO site_event (site_id, kind, path, country)
		VALUES ($1, $2, $3, $4)
	`, siteID, req.Type, req.Path, country); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record event"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
