//go:build docker

package cli

import "github.com/gofiber/fiber/v3"

// createFiberConfig returns Fiber configuration for Docker deployments.
// The container port is exposed directly by the orchestrator, so forwarded
// headers are not trusted for client addressing.
func createFiberConfig(appName string) fiber.Config {
	return fiber.Config{
		AppName: appName,
	}
}
