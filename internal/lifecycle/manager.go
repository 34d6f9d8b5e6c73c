package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/config"
	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/logging"
	"github.com/sitepilot/sitepilot/internal/models"
	"github.com/sitepilot/sitepilot/internal/routing"
)

var (
	// ErrDomainTaken means the domain string is already registered,
	// possibly by another tenant. Global uniqueness is non-negotiable: a
	// domain must never resolve to two different tenants.
	ErrDomainTaken = errors.New("domain is already registered")
	// ErrDomainNotFound means no such custom domain row exists.
	ErrDomainNotFound = errors.New("custom domain not found")
	// ErrUpstream wraps CA, CDN, and DNS control-plane failures. The state
	// machine does not advance past one.
	ErrUpstream = errors.New("upstream provider error")
)

// Deleter is the optional delete capability of a routing table.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Manager drives custom domain rows through the lifecycle state machine.
// All operations read then conditionally write a single row; concurrent
// duplicate calls interleave safely because every transition checks the
// current state instead of overwriting blindly.
type Manager struct {
	DNS   DNSResolver
	CA    CertificateAuthority
	CDN   CDN
	Table routing.Table

	// VerifySecret keys the deterministic ownership tokens.
	VerifySecret string
}

// domainRow is the joined view the manager operates on.
type domainRow struct {
	ID                 uuid.UUID
	SiteID             uuid.UUID
	TenantID           uuid.UUID
	Domain             string
	Status             Status
	VerificationRecord string
	CertificateARN     *string
	AttachedToCDN      bool
}

func loadDomain(ctx context.Context, domainID uuid.UUID) (*domainRow, error) {
	var row domainRow
	var rawStatus string
	err := database.DB.QueryRowContext(ctx, `
		SELECT d.domain_id, d.site_id, s.tenant_id, d.domain, d.status,
		       d.verification_record, d.certificate_arn, d.attached_to_cdn
		FROM custom_domain d
		JOIN site s ON s.site_id = d.site_id
		WHERE d.domain_id = $1
	`, domainID).Scan(&row.ID, &row.SiteID, &row.TenantID, &row.Domain, &rawStatus,
		&row.VerificationRecord, &row.CertificateARN, &row.AttachedToCDN)
	if err == sql.ErrNoRows {
		return nil, ErrDomainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load custom domain: %w", err)
	}

	row.Status, err = ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// updateStatus moves the row to next, guarded on the state the caller read.
// Zero rows affected means a concurrent call won the race; that is fine —
// transitions are idempotent, so the caller reports the fresher state.
func updateStatus(ctx context.Context, domainID uuid.UUID, from, next Status) error {
	_, err := database.DB.ExecContext(ctx, `
		UPDATE custom_domain
		SET status = $1, updated_at = NOW()
		WHERE domain_id = $2 AND status = $3
	`, string(next), domainID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update domain status: %w", err)
	}
	return nil
}

// RegisterResult is the outcome of registering a new custom domain.
type RegisterResult struct {
	Domain      *models.CustomDomain
	Instruction models.DNSInstruction
}

// Register creates a PENDING custom domain row and returns the TXT record
// the owner must publish. Registering a domain string that exists anywhere
// in the system fails with ErrDomainTaken.
func (m *Manager) Register(ctx context.Context, siteID uuid.UUID, rawDomain string) (*RegisterResult, error) {
	domain, err := config.SanitizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	token := VerificationToken(m.VerifySecret, domain)

	var record models.CustomDomain
	err = database.DB.QueryRowContext(ctx, `
		INSERT INTO custom_domain (site_id, domain, status, verification_record)
		VALUES ($1, $2, $3, $4)
		RETURNING domain_id, created_at, updated_at
	`, siteID, domain, string(StatusPending), token).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDomainTaken
		}
		return nil, fmt.Errorf("failed to register domain: %w", err)
	}

	record.SiteID = siteID
	record.Domain = domain
	record.Status = string(StatusPending)
	record.VerificationRecord = token

	return &RegisterResult{
		Domain:      &record,
		Instruction: verificationInstruction(domain, token),
	}, nil
}

func verificationInstruction(domain, token string) models.DNSInstruction {
	return models.DNSInstruction{
		Type:    "TXT",
		Host:    VerificationHost(domain),
		Value:   token,
		Message: "Publish this TXT record, then run verification again.",
	}
}

// VerifyResult reports a verification attempt. When Verified is false the
// instruction repeats the exact record still missing.
type VerifyResult struct {
	Verified    bool
	Status      Status
	Instruction *models.DNSInstruction
}

// Verify checks the ownership TXT record. Calling it on a domain that is
// already verified (or further along) is a no-op that reports success;
// a failed check leaves the state untouched.
func (m *Manager) Verify(ctx context.Context, domainID uuid.UUID) (*VerifyResult, error) {
	row, err := loadDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	if row.Status.AtLeast(StatusVerified) {
		return &VerifyResult{Verified: true, Status: row.Status}, nil
	}
	if row.Status == StatusFailed {
		return nil, fmt.Errorf("%w: %s is in FAILED state", ErrInvalidTransition, row.Domain)
	}

	host := VerificationHost(row.Domain)
	records, err := m.DNS.LookupTXT(ctx, host)
	if err != nil {
		// NXDOMAIN and friends mean "record not published yet", which is
		// an expected answer, not an upstream failure.
		instruction := verificationInstruction(row.Domain, row.VerificationRecord)
		return &VerifyResult{Verified: false, Status: row.Status, Instruction: &instruction}, nil
	}

	for _, txt := range records {
		if strings.TrimSpace(txt) == row.VerificationRecord {
			next, err := Advance(row.Status, ActionVerify)
			if err != nil {
				return nil, err
			}
			if err := updateStatus(ctx, domainID, row.Status, next); err != nil {
				return nil, err
			}
			logging.L().Info("custom domain verified",
				zap.String("domain", row.Domain), zap.String("status", string(next)))
			return &VerifyResult{Verified: true, Status: next}, nil
		}
	}

	instruction := verificationInstruction(row.Domain, row.VerificationRecord)
	return &VerifyResult{Verified: false, Status: row.Status, Instruction: &instruction}, nil
}

// CertificateResult reports certificate state plus any DNS validation
// records the caller still needs to publish.
type CertificateResult struct {
	Status            Status
	CertificateStatus CertStatus
	ValidationRecords []models.DNSInstruction
}

// RequestCertificate asks the CA for a certificate covering the domain.
// Re-requesting while one is already pending returns the existing request's
// validation records without side effects.
func (m *Manager) RequestCertificate(ctx context.Context, domainID uuid.UUID) (*CertificateResult, error) {
	row, err := loadDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	if row.CertificateARN != nil && row.Status.AtLeast(StatusSSLPending) {
		info, err := m.CA.Describe(ctx, *row.CertificateARN)
		if err != nil {
			return nil, fmt.Errorf("%w: certificate authority: %v", ErrUpstream, err)
		}
		return &CertificateResult{
			Status:            row.Status,
			CertificateStatus: info.Status,
			ValidationRecords: info.ValidationRecords,
		}, nil
	}

	if row.Status != StatusVerified {
		return nil, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ActionRequestCert, row.Status)
	}

	req, err := m.CA.Request(ctx, row.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate authority: %v", ErrUpstream, err)
	}

	next, err := Advance(row.Status, ActionRequestCert)
	if err != nil {
		return nil, err
	}

	_, err = database.DB.ExecContext(ctx, `
		UPDATE custom_domain
		SET status = $1, certificate_arn = $2, certificate_status = $3, updated_at = NOW()
		WHERE domain_id = $4 AND status = $5
	`, string(next), req.ARN, string(CertPending), domainID, string(row.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to record certificate request: %w", err)
	}

	return &CertificateResult{
		Status:            next,
		CertificateStatus: CertPending,
		ValidationRecords: req.ValidationRecords,
	}, nil
}

// PollCertificate refreshes certificate state from the CA. Safe to call any
// number of times while issuance is in flight; the only side effect is the
// state refresh itself.
func (m *Manager) PollCertificate(ctx context.Context, domainID uuid.UUID) (*CertificateResult, error) {
	row, err := loadDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	if row.Status.AtLeast(StatusSSLIssued) {
		return &CertificateResult{Status: row.Status, CertificateStatus: CertIssued}, nil
	}
	if row.Status != StatusSSLPending && row.Status != StatusSSLValidating {
		return nil, fmt.Errorf("%w: no certificate request in flight (state %s)", ErrInvalidTransition, row.Status)
	}
	if row.CertificateARN == nil {
		return nil, fmt.Errorf("%w: missing certificate handle in state %s", ErrInvalidTransition, row.Status)
	}

	info, err := m.CA.Describe(ctx, *row.CertificateARN)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate authority: %v", ErrUpstream, err)
	}

	var next Status
	switch info.Status {
	case CertIssued:
		next, err = Advance(row.Status, ActionCertIssued)
	case CertFailed:
		next, err = Advance(row.Status, ActionFail)
	default:
		next, err = Advance(row.Status, ActionCertValidating)
	}
	if err != nil {
		return nil, err
	}

	if next != row.Status {
		_, err = database.DB.ExecContext(ctx, `
			UPDATE custom_domain
			SET status = $1, certificate_status = $2, updated_at = NOW()
			WHERE domain_id = $3 AND status = $4
		`, string(next), string(info.Status), domainID, string(row.Status))
		if err != nil {
			return nil, fmt.Errorf("failed to record certificate poll: %w", err)
		}
	}

	return &CertificateResult{
		Status:            next,
		CertificateStatus: info.Status,
		ValidationRecords: info.ValidationRecords,
	}, nil
}

// ActivationResult reports an activation attempt. Until the CNAME is
// observed in DNS the domain parks in DNS_PENDING and the instruction
// carries the record to publish.
type ActivationResult struct {
	Status        Status
	AlreadyActive bool
	Instruction   *models.DNSInstruction
}

// Activate attaches the certificated domain to the CDN tenant, writes the
// routing table entry, and flips the domain ACTIVE once its CNAME resolves.
// Activating an already-ACTIVE domain is a success no-op; re-attachment of
// an attached domain is a no-op on the CDN side as well.
func (m *Manager) Activate(ctx context.Context, domainID uuid.UUID) (*ActivationResult, error) {
	row, err := loadDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	if row.Status == StatusActive {
		return &ActivationResult{Status: StatusActive, AlreadyActive: true}, nil
	}
	if !row.Status.AtLeast(StatusSSLIssued) {
		return nil, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ActionAttach, row.Status)
	}
	if row.CertificateARN == nil {
		return nil, fmt.Errorf("%w: missing certificate handle in state %s", ErrInvalidTransition, row.Status)
	}

	tenantID := row.TenantID.String()

	created, err := m.CDN.EnsureTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: CDN tenant: %v", ErrUpstream, err)
	}
	if created {
		logging.L().Info("created CDN tenant", zap.String("tenant_id", tenantID))
	}

	already, err := m.CDN.AttachDomain(ctx, tenantID, row.Domain, *row.CertificateARN)
	if err != nil {
		return nil, fmt.Errorf("%w: CDN attach: %v", ErrUpstream, err)
	}
	if already {
		logging.L().Debug("domain already attached to CDN", zap.String("domain", row.Domain))
	}

	if !row.AttachedToCDN {
		_, err = database.DB.ExecContext(ctx, `
			UPDATE custom_domain SET attached_to_cdn = TRUE, updated_at = NOW()
			WHERE domain_id = $1
		`, domainID)
		if err != nil {
			return nil, fmt.Errorf("failed to record CDN attachment: %w", err)
		}
	}

	// Routing entry for the verified domain -> current active deployment.
	// Best-effort: a failed write degrades to "attached but not yet live"
	// and the reconciler repairs it; the site may also simply have no
	// active deployment yet.
	var prefix sql.NullString
	err = database.DB.QueryRowContext(ctx, `
		SELECT storage_prefix FROM deployment WHERE site_id = $1 AND is_active
	`, row.SiteID).Scan(&prefix)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load active deployment: %w", err)
	}
	if prefix.Valid {
		if _, err := m.Table.Set(ctx, row.Domain, prefix.String); err != nil {
			logging.L().Warn("routing update for custom domain failed",
				zap.String("domain", row.Domain), zap.Error(err))
		}
	}

	// Move through ATTACHING -> DNS_PENDING in one step; both legs are
	// internal to this call.
	if row.Status == StatusSSLIssued || row.Status == StatusAttaching {
		if err := updateStatus(ctx, domainID, row.Status, StatusDNSPending); err != nil {
			return nil, err
		}
		row.Status = StatusDNSPending
	}

	target := m.CDN.TargetFor(tenantID)
	instruction := models.DNSInstruction{
		Type:    "CNAME",
		Host:    row.Domain,
		Value:   target,
		Message: "Point this CNAME at the CDN, then run activation again to confirm.",
	}

	cname, err := m.DNS.LookupCNAME(ctx, row.Domain)
	if err == nil && strings.TrimSuffix(cname, ".") == strings.TrimSuffix(target, ".") {
		next, err := Advance(StatusDNSPending, ActionDNSConfirmed)
		if err != nil {
			return nil, err
		}
		_, err = database.DB.ExecContext(ctx, `
			UPDATE custom_domain
			SET status = $1, activated_at = $2, updated_at = NOW()
			WHERE domain_id = $3 AND status = $4
		`, string(next), time.Now().UTC(), domainID, string(StatusDNSPending))
		if err != nil {
			return nil, fmt.Errorf("failed to activate domain: %w", err)
		}
		logging.L().Info("custom domain activated", zap.String("domain", row.Domain))
		return &ActivationResult{Status: next}, nil
	}

	return &ActivationResult{Status: StatusDNSPending, Instruction: &instruction}, nil
}

// Delete removes a custom domain. CDN detachment and routing removal run
// first, best-effort: a leaked CDN attachment is a dangling reference, but
// deleting the only source-of-truth record before trying would be worse.
func (m *Manager) Delete(ctx context.Context, domainID uuid.UUID) error {
	row, err := loadDomain(ctx, domainID)
	if err != nil {
		return err
	}

	if row.AttachedToCDN {
		if err := m.CDN.DetachDomain(ctx, row.TenantID.String(), row.Domain); err != nil {
			logging.L().Warn("CDN detach failed during domain delete; continuing",
				zap.String("domain", row.Domain), zap.Error(err))
		}
	}

	if deleter, ok := m.Table.(Deleter); ok {
		if err := deleter.Delete(ctx, row.Domain); err != nil {
			logging.L().Warn("routing delete failed during domain delete; continuing",
				zap.String("domain", row.Domain), zap.Error(err))
		}
	}

	_, err = database.DB.ExecContext(ctx, `DELETE FROM custom_domain WHERE domain_id = $1`, domainID)
	if err != nil {
		return fmt.Errorf("failed to delete domain: %w", err)
	}
	return nil
}
