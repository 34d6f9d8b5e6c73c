package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sitepilot/sitepilot/internal/config"
	"github.com/sitepilot/sitepilot/internal/database"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage tenant sites",
	Long: `Manage tenant sites from the command line.

Site commands operate directly on the database and bypass API key auth,
so they are meant for operators, not tenants.`,
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSiteList()
	},
}

var (
	siteCreateName   string
	siteCreateTenant string
)

var siteCreateCmd = &cobra.Command{
	Use:   "create <slug> --tenant <tenant-id> [--name <name>]",
	Short: "Create a site",
	Long: `Create a site under a tenant.

The slug is the immutable routing key: the site serves at {slug}.{base_domain}
once published. A default home page is created with it.

Examples:
  sitepilot site create acme --tenant 6e1f2c3a-... --name "Acme Inc"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSiteCreate(args[0], siteCreateName, siteCreateTenant)
	},
}

func connectCLI() (func(), error) {
	if database.DB != nil {
		return func() {}, nil
	}
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return func() { _ = database.Close() }, nil
}

func runSiteList() error {
	cleanup, err := connectCLI()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := database.DB.QueryContext(ctx, `
		SELECT s.site_id, s.tenant_id, s.slug, s.name, s.created_at,
		       COALESCE(d.deployment_id::text, '-') AS active_deployment
		FROM site s
		LEFT JOIN deployment d ON d.site_id = s.site_id AND d.is_active
		ORDER BY s.created_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SITE ID\tTENANT ID\tSLUG\tNAME\tACTIVE DEPLOYMENT\tCREATED")

	count := 0
	for rows.Next() {
		var siteID, tenantID, slug, name, deployment string
		var createdAt time.Time
		if err := rows.Scan(&siteID, &tenantID, &slug, &name, &createdAt, &deployment); err != nil {
			return fmt.Errorf("failed to scan site: %w", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			siteID, tenantID, slug, name, deployment, createdAt.Format(time.RFC3339))
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sites: %w", err)
	}

	if count == 0 {
		fmt.Println("No sites found")
		fmt.Println("\nCreate one with: sitepilot site create <slug> --tenant <tenant-id>")
		return nil
	}

	return w.Flush()
}

func runSiteCreate(rawSlug, name, tenant string) error {
	slug, err := config.SanitizeSlug(rawSlug)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", tenant, err)
	}
	if name == "" {
		name = slug
	}

	cleanup, err := connectCLI()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var siteID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO site (tenant_id, slug, name)
		VALUES ($1, $2, $3)
		RETURNING site_id`, tenantID, slug, name).Scan(&siteID)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO page (site_id, slug, title, layout)
		VALUES ($1, '/', 'Home', '{"blocks":[]}')`, siteID)
	if err != nil {
		return fmt.Errorf("failed to create home page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	fmt.Println("Site created successfully!")
	fmt.Printf("  ID:   %s\n", siteID)
	fmt.Printf("  Slug: %s\n", slug)
	fmt.Printf("  Name: %s\n", name)
	fmt.Println("\nNext: publish it with POST /api/sites/" + siteID.String() + "/publish")

	return nil
}

func init() {
	siteCreateCmd.Flags().StringVar(&siteCreateName, "name", "", "Display name for the site (defaults to slug)")
	siteCreateCmd.Flags().StringVar(&siteCreateTenant, "tenant", "", "Tenant UUID that owns the site")
	_ = siteCreateCmd.MarkFlagRequired("tenant")

	siteCmd.AddCommand(siteListCmd)
	siteCmd.AddCommand(siteCreateCmd)
}
