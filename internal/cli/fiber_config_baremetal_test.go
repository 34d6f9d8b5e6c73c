//go:build !docker

package cli

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
)

func TestCreateFiberConfigProxyHeaderBareMetal(t *testing.T) {
	config := createFiberConfig("Test App")

	// Bare metal deployments sit behind a reverse proxy
	assert.Equal(t, fiber.HeaderXForwardedFor, config.ProxyHeader)
}
