package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/sitepilot/sitepilot/internal/database"
)

// Version is stamped by the CLI at startup.
var Version = "dev"

// HandleUp is the liveness probe: process answers, nothing else checked.
func HandleUp(c fiber.Ctx) error {
	return c.SendString("OK")
}

// HandleHealth is the readiness probe: database reachable.
func HandleHealth(c fiber.Ctx) error {
	if database.DB == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "database": "not connected"})
	}
	if err := database.DB.PingContext(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "database": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleVersion reports the running build.
func HandleVersion(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": Version})
}
