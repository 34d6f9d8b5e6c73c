package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/config"
	"github.com/sitepilot/sitepilot/internal/edge"
	"github.com/sitepilot/sitepilot/internal/logging"
	"github.com/sitepilot/sitepilot/internal/routing"
)

var (
	edgeSnapshotPath string
	edgeOriginRoot   string
	edgePort         string
)

var edgeCmd = &cobra.Command{
	Use:   "edge --snapshot <file> --origin <dir>",
	Short: "Serve viewer traffic from a routing snapshot",
	Long: `Serve viewer traffic the way the edge runtime does, from a local
routing snapshot and a filesystem origin mirroring the deployment store.

Meant for local preview and self-hosted single-node installs; production
viewer traffic is served by the edge platform, not this process.

The snapshot file is a YAML key -> prefix map as exported from the KV
namespace:

  acme: /owner/tenant/site/deployments/d1
  www.acme.com: /owner/tenant/site/deployments/d1

Example:
  sitepilot edge --snapshot routing.yaml --origin ./deployments --port 8787`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdge(edgeSnapshotPath, edgeOriginRoot, edgePort)
	},
}

func runEdge(snapshotPath, originRoot, port string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port == "" {
		port = "8787"
	}

	snapshot, err := routing.LoadSnapshotFile(snapshotPath)
	if err != nil {
		return err
	}

	server := edge.NewServer(cfg.BaseDomain, originRoot, func() *routing.Snapshot {
		return snapshot
	})

	logging.L().Info("edge preview serving",
		zap.String("port", port),
		zap.String("base_domain", cfg.BaseDomain),
		zap.Int("routes", snapshot.Len()))

	return fasthttp.ListenAndServe(fmt.Sprintf(":%s", port), server.Handler)
}

func init() {
	edgeCmd.Flags().StringVar(&edgeSnapshotPath, "snapshot", "", "YAML routing snapshot file")
	edgeCmd.Flags().StringVar(&edgeOriginRoot, "origin", "", "Directory mirroring the deployment store layout")
	edgeCmd.Flags().StringVar(&edgePort, "port", "", "Port to listen on (default: 8787)")
	_ = edgeCmd.MarkFlagRequired("snapshot")
	_ = edgeCmd.MarkFlagRequired("origin")

	RootCmd.AddCommand(edgeCmd)
}
