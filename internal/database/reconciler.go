package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/logging"
	"github.com/sitepilot/sitepilot/internal/routing"
)

// Reconciler repairs routing-table staleness in the background. A publish
// or activation whose routing write failed leaves a marker (kvs_updated =
// FALSE on the deployment) or simply a missing entry; the reconciler
// retries those writes on a ticker so degraded publishes converge to live
// without blocking anyone.
type Reconciler struct {
	table    routing.Table
	interval time.Duration
	stopChan chan struct{}
}

// NewReconciler creates a reconciler flushing through the given table.
func NewReconciler(table routing.Table, interval time.Duration) *Reconciler {
	return &Reconciler{
		table:    table,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the reconcile loop. The first pass runs immediately.
func (r *Reconciler) Start() {
	logging.L().Info("starting routing reconciler", zap.Duration("interval", r.interval))
	go r.loop()
}

// Stop gracefully stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopChan)
}

func (r *Reconciler) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.reconcile(context.Background())

	for {
		select {
		case <-ticker.C:
			r.reconcile(context.Background())
		case <-r.stopChan:
			return
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	r.retryStaleDeployments(ctx)
	r.refreshActiveDomains(ctx)
}

// retryStaleDeployments re-sends slug entries for active deployments whose
// original routing write failed, clearing the marker on success.
func (r *Reconciler) retryStaleDeployments(ctx context.Context) {
	rows, err := DB.QueryContext(ctx, `
		SELECT d.deployment_id, s.slug, d.storage_prefix
		FROM deployment d
		JOIN site s ON s.site_id = d.site_id
		WHERE d.is_active AND NOT d.kvs_updated
	`)
	if err != nil {
		logging.L().Warn("failed to list stale deployments", zap.Error(err))
		return
	}
	defer func() { _ = rows.Close() }()

	type stale struct {
		deploymentID string
		slug         string
		prefix       string
	}
	var pending []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.deploymentID, &s.slug, &s.prefix); err != nil {
			logging.L().Warn("failed to scan stale deployment", zap.Error(err))
			return
		}
		pending = append(pending, s)
	}
	if err := rows.Err(); err != nil {
		logging.L().Warn("failed to read stale deployments", zap.Error(err))
		return
	}

	for _, s := range pending {
		result, err := r.table.Set(ctx, s.slug, s.prefix)
		if err != nil || result == routing.SetFailed {
			logging.L().Warn("routing retry failed; deployment still not live",
				zap.String("site", s.slug), zap.String("deployment_id", s.deploymentID), zap.Error(err))
			continue
		}

		if _, err := DB.ExecContext(ctx, `
			UPDATE deployment SET kvs_updated = TRUE WHERE deployment_id = $1
		`, s.deploymentID); err != nil {
			logging.L().Warn("failed to clear kvs marker", zap.String("deployment_id", s.deploymentID), zap.Error(err))
			continue
		}
		logging.L().Info("routing entry repaired", zap.String("site", s.slug))
	}
}

// refreshActiveDomains re-asserts custom-domain entries against the active
// deployment prefix. An entry that is already correct comes back as
// skipped, so the steady-state pass writes nothing.
func (r *Reconciler) refreshActiveDomains(ctx context.Context) {
	rows, err := DB.QueryContext(ctx, `
		SELECT cd.domain, d.storage_prefix
		FROM custom_domain cd
		JOIN deployment d ON d.site_id = cd.site_id AND d.is_active
		WHERE cd.status = 'ACTIVE'
	`)
	if err != nil {
		logging.L().Warn("failed to list active domains", zap.Error(err))
		return
	}
	defer func() { _ = rows.Close() }()

	type entry struct{ domain, prefix string }
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.domain, &e.prefix); err != nil {
			logging.L().Warn("failed to scan active domain", zap.Error(err))
			return
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		logging.L().Warn("failed to read active domains", zap.Error(err))
		return
	}

	for _, e := range entries {
		result, err := r.table.Set(ctx, e.domain, e.prefix)
		if err != nil || result == routing.SetFailed {
			logging.L().Warn("domain routing refresh failed",
				zap.String("domain", e.domain), zap.Error(err))
			continue
		}
		if result == routing.SetUpdated {
			logging.L().Info("domain routing entry repaired", zap.String("domain", e.domain))
		}
	}
}
