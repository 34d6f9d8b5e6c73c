//go:build docker

package cli

// Container images are replaced, not upgraded in place.
func setupSelfUpgrade() {}
