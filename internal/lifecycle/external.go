package lifecycle

import (
	"context"
	"net"

	"github.com/sitepilot/sitepilot/internal/models"
)

// DNSResolver is the read-only DNS view used for ownership verification and
// CNAME confirmation.
type DNSResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, name string) (string, error)
}

// NetResolver adapts net.Resolver to DNSResolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver returns a resolver using the system DNS configuration.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

func (r *NetResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return r.resolver.LookupTXT(ctx, name)
}

func (r *NetResolver) LookupCNAME(ctx context.Context, name string) (string, error) {
	return r.resolver.LookupCNAME(ctx, name)
}

// CertStatus is the reduced view of an external certificate's state.
type CertStatus string

const (
	CertPending CertStatus = "PENDING"
	CertIssued  CertStatus = "ISSUED"
	CertFailed  CertStatus = "FAILED"
)

// CertificateRequest is the CA's answer to a new certificate request: the
// external handle plus the DNS records the caller must publish to prove
// control.
type CertificateRequest struct {
	ARN               string
	ValidationRecords []models.DNSInstruction
}

// CertificateInfo is the CA's current view of a requested certificate.
type CertificateInfo struct {
	Status            CertStatus
	ValidationRecords []models.DNSInstruction
}

// CertificateAuthority abstracts the external CA integration. Request must
// be safe to repeat for the same domain (returning the existing handle) and
// Describe must be safe to poll at any cadence.
type CertificateAuthority interface {
	Request(ctx context.Context, domain string) (*CertificateRequest, error)
	Describe(ctx context.Context, arn string) (*CertificateInfo, error)
}

// CDN abstracts the CDN control plane: multi-tenant distribution config
// plus per-domain attachment. EnsureTenant and AttachDomain report
// already-existing resources as success with a flag, never as an error;
// caller retry logic depends on that.
type CDN interface {
	EnsureTenant(ctx context.Context, tenantID string) (created bool, err error)
	AttachDomain(ctx context.Context, tenantID, domain, certificateARN string) (alreadyAttached bool, err error)
	DetachDomain(ctx context.Context, tenantID, domain string) error
	// TargetFor returns the hostname the customer's CNAME must point at.
	TargetFor(tenantID string) string
}
