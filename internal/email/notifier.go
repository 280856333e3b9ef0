package email

import (
	"context"

	"coachdesk_backend/internal/events"
	"coachdesk_backend/platform/logger"
)

// Notifier bridges the event bus to email delivery: health alerts and stale
// lead digests go to the configured operations address.
type Notifier struct {
	sender Sender
	to     string
	log    *logger.Logger
}

// NewNotifier creates a new notifier sending to the given address.
func NewNotifier(sender Sender, to string, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, to: to, log: log}
}

// Subscribe registers the notifier's handlers on the event bus.
func (n *Notifier) Subscribe(bus events.Bus) {
	bus.Subscribe(events.HealthAlertRaised{}.EventName(), events.HandlerFunc(n.onHealthAlert))
	bus.Subscribe(events.StaleLeadsDetected{}.EventName(), events.HandlerFunc(n.onStaleLeads))
}

func (n *Notifier) onHealthAlert(ctx context.Context, event events.Event) error {
	alert, ok := event.(events.HealthAlertRaised)
	if !ok || n.to == "" {
		return nil
	}

	err := n.sender.SendHealthAlertEmail(ctx, n.to, alert.ClientID.String(),
		string(alert.FromStatus), string(alert.ToStatus), alert.Score)
	if err != nil && n.log != nil {
		n.log.Error("health alert email failed", "client_id", alert.ClientID, "error", err)
	}
	return err
}

func (n *Notifier) onStaleLeads(ctx context.Context, event events.Event) error {
	stale, ok := event.(events.StaleLeadsDetected)
	if !ok || n.to == "" || len(stale.LeadIDs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(stale.LeadIDs))
	for _, id := range stale.LeadIDs {
		ids = append(ids, id.String())
	}

	err := n.sender.SendStaleLeadsEmail(ctx, n.to, ids)
	if err != nil && n.log != nil {
		n.log.Error("stale leads email failed", "tenant_id", stale.TenantID, "error", err)
	}
	return err
}
