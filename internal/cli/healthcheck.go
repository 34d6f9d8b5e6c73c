package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitepilot/sitepilot/internal/config"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if the server is healthy",
	Long:  "Performs an HTTP request to the /up endpoint to verify the server and database are operational",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		url := fmt.Sprintf("http://localhost:%s/up", cfg.Port)

		client := &http.Client{
			Timeout: 2 * time.Second,
		}

		resp, err := client.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			return fmt.Errorf("healthcheck failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: status %d\n", resp.StatusCode)
			return fmt.Errorf("healthcheck failed: status %d", resp.StatusCode)
		}

		return nil
	},
}
