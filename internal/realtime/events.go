package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sitepilot/sitepilot/internal/database"
	"github.com/sitepilot/sitepilot/internal/logging"
)

// ChannelName is the Postgres NOTIFY channel events flow through.
const ChannelName = "sitepilot_events"

// Event types.
const (
	EventDeploymentPublished = "deployment.published"
	EventDomainStatusChanged = "domain.status_changed"
)

// Event is the wire payload pushed to dashboards. Fields are populated per
// type: deployment events carry DeploymentID and KVSUpdated, domain events
// carry Domain and Status.
type Event struct {
	Type         string    `json:"type"`
	SiteID       string    `json:"site_id"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	KVSUpdated   *bool     `json:"kvs_updated,omitempty"`
	Domain       string    `json:"domain,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotifyDeploymentPublished fans out a publish event via pg_notify.
func NotifyDeploymentPublished(ctx context.Context, siteID, deploymentID uuid.UUID, kvsUpdated bool) {
	notify(ctx, Event{
		Type:         EventDeploymentPublished,
		SiteID:       siteID.String(),
		DeploymentID: deploymentID.String(),
		KVSUpdated:   &kvsUpdated,
		CreatedAt:    time.Now().UTC(),
	})
}

// NotifyDomainStatus fans out a custom-domain lifecycle transition.
func NotifyDomainStatus(ctx context.Context, siteID uuid.UUID, domain, status string) {
	notify(ctx, Event{
		Type:      EventDomainStatusChanged,
		SiteID:    siteID.String(),
		Domain:    domain,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
}

// notify is best-effort: realtime is a convenience layer and must never
// fail the operation that emitted the event.
func notify(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.L().Warn("failed to marshal realtime payload", zap.Error(err))
		return
	}

	if _, err := database.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(data)); err != nil {
		logging.L().Warn("failed to send realtime notification", zap.Error(err))
	}
}

// StartListener subscribes to the NOTIFY channel and feeds payloads into
// the hub until ctx is cancelled.
func StartListener(ctx context.Context, databaseURL string, hub *Hub) error {
	listener := pq.NewListener(databaseURL, 5*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logging.L().Warn("realtime listener event", zap.Int("event", int(event)), zap.Error(err))
		}
	})

	if err := listener.Listen(ChannelName); err != nil {
		return err
	}

	go func() {
		defer func() {
			_ = listener.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n == nil {
					continue
				}
				hub.Broadcast([]byte(n.Extra))
			case <-time.After(time.Minute):
				if err := listener.Ping(); err != nil {
					logging.L().Warn("realtime listener ping failed", zap.Error(err))
				}
			}
		}
	}()

	return nil
}
