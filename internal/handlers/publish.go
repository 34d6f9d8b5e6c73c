package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/sitepilot/sitepilot/internal/publisher"
	"github.com/sitepilot/sitepilot/internal/realtime"
)

// HandlePublish runs the publish pipeline for a site. A degraded routing
// write still returns 200; kvsUpdated false tells the UI to warn that the
// upload is live-pending.
func HandlePublish(pub *publisher.Publisher) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, err := requireSite(c)
		if site == nil {
			return err
		}

		var req PublishRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().Body(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
			}
		}

		result, err := pub.Publish(c.Context(), site.ID, publisher.PublishOptions{
			DeploymentName: req.DeploymentName,
		})
		if errors.Is(err, publisher.ErrNoPages) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Site has no pages to publish"})
		}
		if errors.Is(err, publisher.ErrSiteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Publish failed: " + err.Error()})
		}

		realtime.NotifyDeploymentPublished(c.Context(), site.ID, result.DeploymentID, result.KVSUpdated)

		message := "Site published"
		if !result.KVSUpdated {
			message = "Site published, but the routing update is still pending; changes may take a moment to go live"
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"deploymentId": result.DeploymentID,
			"s3Prefix":     result.StoragePrefix,
			"kvsUpdated":   result.KVSUpdated,
			"siteUrl":      result.SiteURL,
			"liveUrl":      result.LiveURL,
			"message":      message,
		})
	}
}
