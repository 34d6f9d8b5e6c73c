// Package middleware holds the request-auth layer of the management API.
package middleware

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/sitepilot/sitepilot/internal/models"
)

// KeyPrefix is carried by every issued API key so keys from other
// environments fail fast with a format error instead of a hash miss.
const KeyPrefix = "sitepilot_live_"

// LocalsKey is where APIKeyAuth stashes the authenticated key on the
// request context.
const LocalsKey = "api_key"

// apiKeyValidator is swapped in tests.
var apiKeyValidator = models.GetAPIKeyByHash

// APIKeyAuth authenticates requests with a tenant-scoped API key from the
// Authorization header (or X-Api-Key) and stashes the key on the request.
// An empty requiredScope defers scope checks to the handler.
func APIKeyAuth(requiredScope string) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := extractAPIKey(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing API key"})
		}
		if !strings.HasPrefix(key, KeyPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key format"})
		}

		apiKey, err := apiKeyValidator(models.HashAPIKey(key))
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Authentication error"})
		}
		if !apiKey.IsValid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "API key revoked"})
		}
		if requiredScope != "" && !apiKey.HasScope(requiredScope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "API key does not have " + requiredScope + " permission"})
		}

		go models.UpdateAPIKeyLastUsed(apiKey.KeyID)

		c.Locals(LocalsKey, apiKey)
		return c.Next()
	}
}

func extractAPIKey(c fiber.Ctx) string {
	if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Get("X-Api-Key")
}

// KeyFromContext returns the authenticated API key, or nil on routes that
// skipped APIKeyAuth.
func KeyFromContext(c fiber.Ctx) *models.APIKey {
	key, _ := c.Locals(LocalsKey).(*models.APIKey)
	return key
}
