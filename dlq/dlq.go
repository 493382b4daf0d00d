// Package dlq holds deliveries that exhausted their retries and supports
// replaying them back onto the delivery queue.
package dlq

import (
	"encoding/json"
	"time"

	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// Entry is a dead-lettered delivery.
type Entry struct {
	entity.Entity

	ID             id.ID           `json:"id"`
	DeliveryID     id.ID           `json:"deliveryId"`
	WebhookID      id.ID           `json:"webhookId"`
	Event          event.Name      `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	Error          string          `json:"error,omitempty"`
	AttemptCount   int             `json:"attemptCount"`
	LastStatusCode int             `json:"lastStatusCode,omitempty"`
	FailedAt       time.Time       `json:"failedAt"`
	ReplayedAt     *time.Time      `json:"replayedAt,omitempty"`
}

// Replayed reports whether this entry has already been replayed.
func (e *Entry) Replayed() bool {
	return e.ReplayedAt != nil
}

// ListOpts filters DLQ listings.
type ListOpts struct {
	Offset    int
	Limit     int
	WebhookID id.ID
	Event     event.Name
}
