// Package storage implements the Deployment Store: durable, content-addressed
// storage of immutable per-deployment static asset bundles. Objects under a
// deployment prefix are written once and never mutated; a new publish writes
// under a fresh prefix and supersedes the old one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrImmutable is returned when a write would overwrite an existing object.
// Deployment assets are superseded by new deployments, never rewritten.
var ErrImmutable = errors.New("object already exists and deployment objects are immutable")

// ObjectStore is the contract the publisher uploads through. Any single
// failed Put aborts the surrounding publish; the routing table is only
// updated after every object of a deployment is durably stored.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// DeploymentPrefix builds the storage namespace for one deployment:
// {ownerId}/{tenantId}/{siteId}/deployments/{deploymentId}. No trailing
// slash; the routing table stores this exact string.
func DeploymentPrefix(ownerID, tenantID, siteID, deploymentID string) string {
	return fmt.Sprintf("%s/%s/%s/deployments/%s", ownerID, tenantID, siteID, deploymentID)
}

// ObjectKey joins a deployment prefix and a relative asset path.
func ObjectKey(prefix, assetPath string) string {
	return prefix + "/" + strings.TrimPrefix(assetPath, "/")
}
