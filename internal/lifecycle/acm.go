package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"

	"github.com/sitepilot/sitepilot/internal/models"
)

// ACMAPI is the subset of the ACM client the authority uses.
type ACMAPI interface {
	RequestCertificate(ctx context.Context, params *acm.RequestCertificateInput, optFns ...func(*acm.Options)) (*acm.RequestCertificateOutput, error)
	DescribeCertificate(ctx context.Context, params *acm.DescribeCertificateInput, optFns ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
}

// ACMAuthority implements CertificateAuthority on AWS Certificate Manager
// with DNS validation.
type ACMAuthority struct {
	client ACMAPI
}

// NewACMAuthority builds an authority from the ambient AWS credential chain.
func NewACMAuthority(ctx context.Context, region string) (*ACMAuthority, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &ACMAuthority{client: acm.NewFromConfig(cfg)}, nil
}

// NewACMAuthorityWithClient wires a pre-built client, used by tests.
func NewACMAuthorityWithClient(client ACMAPI) *ACMAuthority {
	return &ACMAuthority{client: client}
}

// Request asks ACM for a DNS-validated certificate. The idempotency token
// is derived from the domain, so repeating the call returns the existing
// certificate instead of minting another one.
func (a *ACMAuthority) Request(ctx context.Context, domain string) (*CertificateRequest, error) {
	domain = strings.ToLower(domain)
	sum := sha256.Sum256([]byte(domain))
	token := hex.EncodeToString(sum[:])[:32]

	out, err := a.client.RequestCertificate(ctx, &acm.RequestCertificateInput{
		DomainName:       aws.String(domain),
		ValidationMethod: types.ValidationMethodDns,
		IdempotencyToken: aws.String(token),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request certificate: %w", err)
	}
	arn := aws.ToString(out.CertificateArn)

	// Validation records materialize asynchronously; return whatever ACM
	// already knows. Callers poll Describe for the rest.
	info, err := a.Describe(ctx, arn)
	if err != nil {
		return &CertificateRequest{ARN: arn}, nil
	}
	return &CertificateRequest{ARN: arn, ValidationRecords: info.ValidationRecords}, nil
}

// Describe reduces ACM's certificate view to the lifecycle's three states.
func (a *ACMAuthority) Describe(ctx context.Context, arn string) (*CertificateInfo, error) {
	out, err := a.client.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
		CertificateArn: aws.String(arn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe certificate: %w", err)
	}
	cert := out.Certificate
	if cert == nil {
		return nil, fmt.Errorf("certificate %s has no detail", arn)
	}

	info := &CertificateInfo{Status: reduceCertStatus(cert.Status)}
	for _, opt := range cert.DomainValidationOptions {
		if opt.ResourceRecord == nil {
			continue
		}
		info.ValidationRecords = append(info.ValidationRecords, models.DNSInstruction{
			Type:    string(opt.ResourceRecord.Type),
			Host:    aws.ToString(opt.ResourceRecord.Name),
			Value:   aws.ToString(opt.ResourceRecord.Value),
			Message: "Publish this record to validate the certificate.",
		})
	}
	return info, nil
}

func reduceCertStatus(s types.CertificateStatus) CertStatus {
	switch s {
	case types.CertificateStatusIssued:
		return CertIssued
	case types.CertificateStatusFailed,
		types.CertificateStatusValidationTimedOut,
		types.CertificateStatusRevoked,
		types.CertificateStatusExpired:
		return CertFailed
	default:
		return CertPending
	}
}
