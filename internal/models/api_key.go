package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitepilot/sitepilot/internal/database"
)

// APIKey authenticates API callers and scopes them to a tenant.
type APIKey struct {
	KeyID      uuid.UUID
	TenantID   uuid.UUID
	Name       *string
	Scopes     []string
	RevokedAt  *time.Time
	LastUsedAt *time.Time
}

// HashAPIKey creates the SHA256 hash stored and looked up in the database.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetAPIKeyByHash loads an API key row by its hash.
func GetAPIKeyByHash(keyHash string) (*APIKey, error) {
	var key APIKey
	err := database.DB.QueryRow(`
		SELECT key_id, tenant_id, name, scopes, revoked_at, last_used_at
		FROM api_key
		WHERE key_hash = $1
	`, keyHash).Scan(&key.KeyID, &key.TenantID, &key.Name, &scanScopes{&key.Scopes}, &key.RevokedAt, &key.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed stamps the key's last_used_at. Fire-and-forget.
func UpdateAPIKeyLastUsed(keyID uuid.UUID) {
	_, _ = database.DB.Exec(`UPDATE api_key SET last_used_at = NOW() WHERE key_id = $1`, keyID)
}

// IsValid reports whether the key is usable (not revoked).
func (k *APIKey) IsValid() bool {
	return k.RevokedAt == nil
}

// HasScope reports whether the key carries the given scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// scanScopes scans a Postgres text[] column ({a,b,c}) into a string slice.
type scanScopes struct {
	dest *[]string
}

func (s *scanScopes) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s.dest = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into scopes", src)
	}

	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		*s.dest = []string{}
		return nil
	}

	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		scopes = append(scopes, strings.Trim(p, `"`))
	}
	*s.dest = scopes
	return nil
}
