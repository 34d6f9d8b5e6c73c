package handlers

import "github.com/sitepilot/sitepilot/internal/models"

// CreateSiteRequest is the POST /api/sites payload.
type CreateSiteRequest struct {
	Slug  string  `json:"slug"`
	Name  string  `json:"name"`
	Theme *string `json:"theme,omitempty"`
}

// PublishRequest is the POST /api/sites/:site_id/publish payload.
type PublishRequest struct {
	DeploymentName string `json:"deploymentName,omitempty"`
}

// RegisterDomainRequest is the POST /api/sites/:site_id/domains payload.
type RegisterDomainRequest struct {
	Domain string `json:"domain"`
}

// DomainResponse pairs a domain record with the DNS step the caller must
// take next, when there is one.
type DomainResponse struct {
	Domain          *models.CustomDomain   `json:"domain"`
	DNSInstructions *models.DNSInstruction `json:"dnsInstructions,omitempty"`
}
