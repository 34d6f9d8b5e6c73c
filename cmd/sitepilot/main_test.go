package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPassesEmbeddedVersionToCLI(t *testing.T) {
	original := executeCLI
	defer func() { executeCLI = original }()

	called := false
	executeCLI = func(version string) error {
		called = true
		assert.Equal(t, strings.TrimSpace(versionFile), version)
		assert.NotEmpty(t, version)
		return nil
	}

	require.NoError(t, run())
	assert.True(t, called)
}

func TestRunPropagatesExecuteError(t *testing.T) {
	original := executeCLI
	defer func() { executeCLI = original }()

	executeCLI = func(version string) error {
		return errors.New("boom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
