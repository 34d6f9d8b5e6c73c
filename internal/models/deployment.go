package models

import (
	"time"

	"github.com/google/uuid"
)

// Deployment is an immutable record of one publish action. At most one
// deployment per site is active at a time; activating a new one deactivates
// all others in the same transaction. Assets under StoragePrefix are never
// mutated, only superseded.
type Deployment struct {
	ID            uuid.UUID `json:"id"`
	SiteID        uuid.UUID `json:"site_id"`
	StoragePrefix string    `json:"storage_prefix"`
	IsActive      bool      `json:"is_active"`
	KVSUpdated    bool      `json:"kvs_updated"`
	CreatedAt     time.Time `json:"created_at"`
}
