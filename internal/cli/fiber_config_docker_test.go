//go:build docker

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateFiberConfigProxyHeaderDocker(t *testing.T) {
	config := createFiberConfig("Test App")

	// Container ports are exposed directly, forwarded headers are untrusted
	assert.Empty(t, config.ProxyHeader)
}
