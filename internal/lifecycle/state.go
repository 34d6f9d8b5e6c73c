// Package lifecycle drives a user-supplied custom domain from registration
// to live traffic: DNS ownership verification, TLS certificate issuance,
// CDN attachment, and activation. Every transition is triggered by an
// explicit caller action or poll and is idempotent, so the state machine is
// safe to drive from a UI "Check status" button at any cadence. No retries
// happen server-side.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status is the closed set of lifecycle states. ACTIVE and FAILED are
// terminal.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusVerifying     Status = "VERIFYING"
	StatusVerified      Status = "VERIFIED"
	StatusSSLPending    Status = "SSL_PENDING"
	StatusSSLValidating Status = "SSL_VALIDATING"
	StatusSSLIssued     Status = "SSL_ISSUED"
	StatusAttaching     Status = "ATTACHING"
	StatusDNSPending    Status = "DNS_PENDING"
	StatusActive        Status = "ACTIVE"
	StatusFailed        Status = "FAILED"
)

// Action is a caller-triggered transition input.
type Action string

const (
	ActionVerify         Action = "verify"
	ActionRequestCert    Action = "request_certificate"
	ActionCertValidating Action = "certificate_validating"
	ActionCertIssued     Action = "certificate_issued"
	ActionAttach         Action = "attach"
	ActionAttached       Action = "attached"
	ActionDNSConfirmed   Action = "dns_confirmed"
	ActionFail           Action = "fail"
)

// ErrInvalidTransition rejects an action that is not legal from the current
// state. Callers treat it as a conflict, not a server error.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// transitions is the complete from-state x action table. Anything absent is
// illegal; FAILED is reachable from every non-terminal state via ActionFail.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionVerify: StatusVerified,
	},
	StatusVerifying: {
		ActionVerify: StatusVerified,
	},
	StatusVerified: {
		ActionRequestCert: StatusSSLPending,
	},
	StatusSSLPending: {
		ActionCertValidating: StatusSSLValidating,
		ActionCertIssued:     StatusSSLIssued,
	},
	StatusSSLValidating: {
		ActionCertValidating: StatusSSLValidating,
		ActionCertIssued:     StatusSSLIssued,
	},
	StatusSSLIssued: {
		ActionAttach: StatusAttaching,
	},
	StatusAttaching: {
		ActionAttached: StatusDNSPending,
	},
	StatusDNSPending: {
		ActionDNSConfirmed: StatusActive,
	},
}

// ParseStatus validates a stored status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	switch s {
	case StatusPending, StatusVerifying, StatusVerified,
		StatusSSLPending, StatusSSLValidating, StatusSSLIssued,
		StatusAttaching, StatusDNSPending, StatusActive, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown domain status %q", raw)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusActive || s == StatusFailed
}

// AtLeast reports whether the state has progressed to (or past) the given
// milestone, following the single forward path of the machine.
func (s Status) AtLeast(milestone Status) bool {
	return stateOrder(s) >= stateOrder(milestone)
}

func stateOrder(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusVerifying:
		return 1
	case StatusVerified:
		return 2
	case StatusSSLPending:
		return 3
	case StatusSSLValidating:
		return 4
	case StatusSSLIssued:
		return 5
	case StatusAttaching:
		return 6
	case StatusDNSPending:
		return 7
	case StatusActive:
		return 8
	default: // FAILED sits outside the forward path
		return -1
	}
}

// Advance computes the state the machine moves to for an action, or
// ErrInvalidTransition. Failing a terminal state is itself illegal.
func Advance(from Status, action Action) (Status, error) {
	if action == ActionFail {
		if from.IsTerminal() {
			return "", fmt.Errorf("%w: cannot fail terminal state %s", ErrInvalidTransition, from)
		}
		return StatusFailed, nil
	}
	if next, ok := transitions[from][action]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}
