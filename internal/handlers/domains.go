package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/lifecycle"
	"github.com/sitepilot/sitepilot/internal/models"
	"github.com/sitepilot/sitepilot/internal/realtime"
)

// domainError translates lifecycle errors to HTTP statuses. External
// provider failures surface as 502 with the underlying reason; the caller
// can always retry, nothing advanced.
func domainError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrDomainNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Domain not found"})
	case errors.Is(err, lifecycle.ErrDomainTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Domain is already registered"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// HandleListDomains returns a site's custom domains.
func HandleListDomains(c fiber.Ctx) error {
	site, err := requireSite(c)
	if site == nil {
		return err
	}

	rows, err := database.DB.QueryContext(c.Context(), `
		SELECT domain_id, site_id, domain, status, verification_record,
		       certificate_arn, certificate_status, attached_to_cdn,
		       activated_at, created_at, updated_at
		FROM custom_domain WHERE site_id = $1
		ORDER BY created_at
	`, site.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to query domains"})
	}
	defer func() { _ = rows.Close() }()

	domains := []models.CustomDomain{}
	for rows.Next() {
		var d models.CustomDomain
		if err := rows.Scan(&d.ID, &d.SiteID, &d.Domain, &d.Status, &d.VerificationRecord,
			&d.CertificateARN, &d.CertificateStatus, &d.AttachedToCDN,
			&d.ActivatedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			continue
		}
		domains = append(domains, d)
	}

	return c.JSON(domains)
}

// HandleRegisterDomain registers a custom domain and returns the TXT record
// proving ownership. 409 when the domain string is taken anywhere in the
// system.
func HandleRegisterDomain(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, err := requireSite(c)
		if site == nil {
			return err
		}

		var req RegisterDomainRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		result, err := mgr.Register(c.Context(), site.ID, req.Domain)
		if errors.Is(err, lifecycle.ErrDomainTaken) {
			return domainError(c, err)
		}
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		realtime.NotifyDomainStatus(c.Context(), site.ID, result.Domain.Domain, result.Domain.Status)

		return c.Status(fiber.StatusCreated).JSON(DomainResponse{
			Domain:          result.Domain,
			DNSInstructions: &result.Instruction,
		})
	}
}

// HandleVerifyDomain checks the ownership TXT record.
func HandleVerifyDomain(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, domainID, err := requireSiteDomain(c)
		if site == nil {
			return err
		}

		result, err := mgr.Verify(c.Context(), domainID)
		if err != nil {
			return domainError(c, err)
		}

		if result.Verified {
			realtime.NotifyDomainStatus(c.Context(), site.ID, c.Params("domain_id"), string(result.Status))
		}

		return c.JSON(fiber.Map{
			"verified":        result.Verified,
			"status":          result.Status,
			"dnsInstructions": result.Instruction,
		})
	}
}

// HandleRequestSSL asks the CA for a certificate.
func HandleRequestSSL(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, domainID, err := requireSiteDomain(c)
		if site == nil {
			return err
		}

		result, err := mgr.RequestCertificate(c.Context(), domainID)
		if err != nil {
			return domainError(c, err)
		}

		realtime.NotifyDomainStatus(c.Context(), site.ID, c.Params("domain_id"), string(result.Status))

		return c.JSON(fiber.Map{
			"status":            result.Status,
			"certificateStatus": result.CertificateStatus,
			"validationRecords": result.ValidationRecords,
		})
	}
}

// HandlePollSSL refreshes certificate issuance state. Safe at any cadence.
func HandlePollSSL(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, domainID, err := requireSiteDomain(c)
		if site == nil {
			return err
		}

		result, err := mgr.PollCertificate(c.Context(), domainID)
		if err != nil {
			return domainError(c, err)
		}

		return c.JSON(fiber.Map{
			"status":            result.Status,
			"certificateStatus": result.CertificateStatus,
			"validationRecords": result.ValidationRecords,
		})
	}
}

// HandleActivateDomain attaches the domain to the CDN and confirms DNS.
func HandleActivateDomain(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, domainID, err := requireSiteDomain(c)
		if site == nil {
			return err
		}

		result, err := mgr.Activate(c.Context(), domainID)
		if err != nil {
			return domainError(c, err)
		}

		if !result.AlreadyActive {
			realtime.NotifyDomainStatus(c.Context(), site.ID, c.Params("domain_id"), string(result.Status))
		}

		return c.JSON(fiber.Map{
			"status":          result.Status,
			"active":          result.Status == lifecycle.StatusActive,
			"dnsInstructions": result.Instruction,
		})
	}
}

// HandleDeleteDomain removes a custom domain.
func HandleDeleteDomain(mgr *lifecycle.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		site, domainID, err := requireSiteDomain(c)
		if site == nil {
			return err
		}

		if err := mgr.Delete(c.Context(), domainID); err != nil {
			return domainError(c, err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
