package main

import (
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/cli"
	"github.com/sitepilot/sitepilot/internal/logging"
)

//go:embed VERSION
var versionFile string

var executeCLI = cli.Execute

func run() error {
	return executeCLI(strings.TrimSpace(versionFile))
}

func main() {
	if err := run(); err != nil {
		logging.Fatal("sitepilot execution failed", zap.Error(err))
	}
}
