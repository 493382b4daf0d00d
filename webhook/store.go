package webhook

import (
	"context"
	"time"

	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
)

// Store defines the persistence contract for webhook configurations.
type Store interface {
	// CreateWebhook persists a new webhook.
	CreateWebhook(ctx context.Context, wh *Webhook) error

	// GetWebhook returns a webhook by ID.
	GetWebhook(ctx context.Context, whID id.ID) (*Webhook, error)

	// UpdateWebhook modifies an existing webhook.
	UpdateWebhook(ctx context.Context, wh *Webhook) error

	// DeleteWebhook removes a webhook.
	DeleteWebhook(ctx context.Context, whID id.ID) error

	// ListWebhooks returns webhooks, optionally filtered.
	ListWebhooks(ctx context.Context, opts ListOpts) ([]*Webhook, error)

	// Resolve finds all active webhooks subscribed to an event name.
	// This is the hot path, called on every emitted event.
	Resolve(ctx context.Context, name event.Name) ([]*Webhook, error)

	// SetActive activates or deactivates a webhook without deleting it.
	SetActive(ctx context.Context, whID id.ID, active bool) error

	// MarkTriggered records the timestamp of the latest delivery attempt.
	MarkTriggered(ctx context.Context, whID id.ID, ts time.Time) error
}
