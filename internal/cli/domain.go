package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/lifecycle"
)

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Inspect custom domains",
	Long: `Inspect custom domains across all sites.

Custom domains move through a verification and certificate lifecycle before
traffic is served on them. Use these commands to see where a domain is stuck.`,
}

var domainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all custom domains",
	Long: `List every custom domain with its lifecycle status.

Use --status to filter, e.g. --status DNS_PENDING to find domains waiting on
customer CNAME records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")
		return runDomainList(statusFilter)
	},
}

var domainStatusCmd = &cobra.Command{
	Use:   "status <domain>",
	Short: "Show a domain's lifecycle detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDomainStatus(args[0])
	},
}

func runDomainList(statusFilter string) error {
	cleanup, err := connectCLI()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		SELECT cd.domain, cd.status, s.slug, cd.attached_to_cdn, cd.created_at
		FROM custom_domain cd
		JOIN site s ON s.site_id = cd.site_id `

	var params []any
	if statusFilter != "" {
		if _, err := lifecycle.ParseStatus(strings.ToUpper(statusFilter)); err != nil {
			return err
		}
		query += "WHERE cd.status = $1 "
		params = append(params, strings.ToUpper(statusFilter))
	}
	query += "ORDER BY cd.created_at DESC"

	rows, err := database.DB.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tSTATUS\tSITE\tCDN\tCREATED")

	count := 0
	for rows.Next() {
		var domain, status, slug string
		var attached bool
		var createdAt time.Time
		if err := rows.Scan(&domain, &status, &slug, &attached, &createdAt); err != nil {
			return fmt.Errorf("failed to scan domain: %w", err)
		}
		cdn := "-"
		if attached {
			cdn = "attached"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			domain, status, slug, cdn, createdAt.Format(time.RFC3339))
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating domains: %w", err)
	}

	if count == 0 {
		if statusFilter != "" {
			fmt.Printf("No domains with status %s\n", strings.ToUpper(statusFilter))
		} else {
			fmt.Println("No custom domains found")
		}
		return nil
	}

	return w.Flush()
}

func runDomainStatus(rawDomain string) error {
	cleanup, err := connectCLI()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		domainID, siteSlug, status string
		certARN, certStatus        *string
		attached                   bool
		activatedAt                *time.Time
		createdAt, updatedAt       time.Time
	)
	err = database.DB.QueryRowContext(ctx, `
		SELECT cd.domain_id, s.slug, cd.status, cd.certificate_arn,
		       cd.certificate_status, cd.attached_to_cdn, cd.activated_at,
		       cd.created_at, cd.updated_at
		FROM custom_domain cd
		JOIN site s ON s.site_id = cd.site_id
		WHERE lower(cd.domain) = lower($1)`, rawDomain,
	).Scan(&domainID, &siteSlug, &status, &certARN, &certStatus,
		&attached, &activatedAt, &createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("domain '%s' not found", rawDomain)
	}

	fmt.Printf("Domain:      %s\n", strings.ToLower(rawDomain))
	fmt.Printf("ID:          %s\n", domainID)
	fmt.Printf("Site:        %s\n", siteSlug)
	fmt.Printf("Status:      %s\n", status)
	if certARN != nil {
		fmt.Printf("Certificate: %s\n", *certARN)
	}
	if certStatus != nil {
		fmt.Printf("Cert status: %s\n", *certStatus)
	}
	fmt.Printf("CDN:         %v\n", attached)
	if activatedAt != nil {
		fmt.Printf("Activated:   %s\n", activatedAt.Format(time.RFC3339))
	}
	fmt.Printf("Created:     %s\n", createdAt.Format(time.RFC3339))
	fmt.Printf("Updated:     %s\n", updatedAt.Format(time.RFC3339))

	st, err := lifecycle.ParseStatus(status)
	if err == nil && !st.IsTerminal() {
		fmt.Printf("\nNext step: %s\n", nextStepHint(st))
	}

	return nil
}

// nextStepHint names the API call that moves a domain forward from here.
func nextStepHint(st lifecycle.Status) string {
	switch st {
	case lifecycle.StatusPending, lifecycle.StatusVerifying:
		return "POST .../verify once the ownership TXT record is published"
	case lifecycle.StatusVerified:
		return "POST .../ssl to request a certificate"
	case lifecycle.StatusSSLPending, lifecycle.StatusSSLValidating:
		return "publish the validation CNAME, then GET .../ssl to poll issuance"
	case lifecycle.StatusSSLIssued, lifecycle.StatusAttaching:
		return "POST .../activate to attach the domain to the CDN"
	case lifecycle.StatusDNSPending:
		return "point the domain's CNAME at the CDN target, then POST .../activate"
	default:
		return "no action needed"
	}
}

func init() {
	domainListCmd.Flags().String("status", "", "Filter by lifecycle status")

	domainCmd.AddCommand(domainListCmd)
	domainCmd.AddCommand(domainStatusCmd)
}
