package webhook

import (
	"errors"
	"time"

	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// ErrNotFound is returned when a webhook cannot be found. The root package
// exposes it as ErrWebhookNotFound; it lives here so the delivery engine can
// tell a deleted webhook apart from a store failure.
var ErrNotFound = errors.New("leadwire: webhook not found")

// Webhook is an externally-configured HTTP endpoint that receives signed
// domain event notifications.
type Webhook struct {
	entity.Entity

	// ID is the unique TypeID for this webhook.
	ID id.ID `json:"id"`

	// Name is the display label shown in the admin UI.
	Name string `json:"name"`

	// URL is the destination HTTP endpoint. Must be an absolute http(s) URL.
	URL string `json:"url"`

	// Events are the subscribed event patterns. "*" matches all events;
	// single-segment globs like "lead.*" are supported.
	Events []string `json:"events"`

	// Headers are custom HTTP headers merged into every delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Secret is the HMAC signing secret. Deliveries are unsigned when empty.
	// Never serialized.
	Secret string `json:"-"`

	// Active indicates whether the webhook is selected for delivery.
	Active bool `json:"active"`

	// RateLimit is the maximum deliveries per minute. 0 means unlimited.
	RateLimit int `json:"rate_limit"`

	// LastTriggered is the most recent delivery attempt that reached the
	// network layer, success or failure. Never set on a skipped delivery.
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

// ListOpts configures filtering and pagination for webhook listing.
type ListOpts struct {
	Offset int
	Limit  int
	Active *bool
}
