package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomDomain is a user-supplied domain attached to a site. The domain
// string is case-normalized and globally unique; its status field is owned
// by the lifecycle state machine.
type CustomDomain struct {
	ID                 uuid.UUID  `json:"id"`
	SiteID             uuid.UUID  `json:"site_id"`
	Domain             string     `json:"domain"`
	Status             string     `json:"status"`
	VerificationRecord string     `json:"verification_record"`
	CertificateARN     *string    `json:"certificate_arn,omitempty"`
	CertificateStatus  *string    `json:"certificate_status,omitempty"`
	AttachedToCDN      bool       `json:"attached_to_cdn"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DNSInstruction tells the caller exactly which DNS record to publish next.
type DNSInstruction struct {
	Type    string `json:"type"`
	Host    string `json:"host"`
	Value   string `json:"value"`
	Message string `json:"message"`
}
