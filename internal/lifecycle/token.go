package lifecycle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyHostPrefix is the well-known host the ownership TXT record lives at.
const VerifyHostPrefix = "_sitepilot-verify."

// VerificationToken derives the deterministic TXT value for a domain. The
// token is stable per domain per installation, so re-registering or
// re-checking never invalidates a record the user already published.
func VerificationToken(secret, domain string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.ToLower(domain)))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

// VerificationHost returns the full TXT record host for a domain.
func VerificationHost(domain string) string {
	return VerifyHostPrefix + strings.ToLower(domain)
}
