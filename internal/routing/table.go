// Package routing implements the eventually-consistent key-value projection
// that maps routing keys (site slugs and custom domains) to the storage
// prefix of the currently active deployment. The relational records are the
// source of truth; this table is a derived view replicated to the edge.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SetResult distinguishes degraded-success from hard failure on writes.
// Callers must branch on it explicitly; a failed routing write never fails
// the operation that produced the deployment.
type SetResult int

const (
	// SetFailed means the entry was not written; the caller records the
	// deployment as not yet live and relies on later reconciliation.
	SetFailed SetResult = iota
	// SetUpdated means the entry was written with a new value.
	SetUpdated
	// SetSkipped means the entry already held the requested value.
	SetSkipped
)

func (r SetResult) String() string {
	switch r {
	case SetUpdated:
		return "updated"
	case SetSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ErrInvalidEntry rejects malformed keys or values before any write attempt.
var ErrInvalidEntry = errors.New("invalid routing entry")

// Table is the write path of the routing table. There is no client-facing
// read API; reads happen only through an edge-local Snapshot.
type Table interface {
	Set(ctx context.Context, key, value string) (SetResult, error)
}

// ValidateEntry enforces the key/value shape: non-empty lowercase key,
// non-empty prefix without leading or trailing slash.
func ValidateEntry(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if key != strings.ToLower(key) {
		return fmt.Errorf("%w: key %q must be lowercase", ErrInvalidEntry, key)
	}
	if value == "" {
		return fmt.Errorf("%w: empty value for key %q", ErrInvalidEntry, key)
	}
	if strings.HasPrefix(value, "/") || strings.HasSuffix(value, "/") {
		return fmt.Errorf("%w: value %q must not have leading or trailing slash", ErrInvalidEntry, value)
	}
	return nil
}
