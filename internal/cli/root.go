package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped from the embedded VERSION file by Execute.
var Version string

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "sitepilot",
	Short: "Multi-tenant website hosting control plane",
	Long: `SitePilot - publish tenant websites to object storage and route
traffic to them through an edge key-value store.

Running sitepilot without a subcommand starts the API server.`,
	Version: Version,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runServer()
		}
		return cmd.Help()
	},
}

// Execute is called by main
func Execute(version string) error {
	Version = version
	RootCmd.Version = version
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(siteCmd)
	RootCmd.AddCommand(domainCmd)
	RootCmd.AddCommand(healthcheckCmd)

	setupSelfUpgrade()
}
