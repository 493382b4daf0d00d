package leadwire

import (
	"errors"

	"github.com/leadwire/leadwire/webhook"
)

// Sentinel errors returned by Leadwire operations.
var (
	// ErrNoStore is returned when a Hub is created without a store.
	ErrNoStore = errors.New("leadwire: store is required")

	// ErrWebhookNotFound is returned when a webhook cannot be found.
	// Aliases webhook.ErrNotFound so packages below the root can match it.
	ErrWebhookNotFound = webhook.ErrNotFound

	// ErrDeliveryNotFound is returned when a delivery cannot be found.
	ErrDeliveryNotFound = errors.New("leadwire: delivery not found")

	// ErrDLQNotFound is returned when a DLQ entry cannot be found.
	ErrDLQNotFound = errors.New("leadwire: dlq entry not found")

	// ErrLeadNotFound is returned when a lead cannot be found.
	ErrLeadNotFound = errors.New("leadwire: lead not found")

	// ErrInteractionNotFound is returned when an interaction cannot be found.
	ErrInteractionNotFound = errors.New("leadwire: interaction not found")

	// ErrProductNotFound is returned when a product cannot be found.
	ErrProductNotFound = errors.New("leadwire: product not found")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("leadwire: user not found")

	// ErrUnknownEvent is returned when emitting an event name outside the vocabulary.
	ErrUnknownEvent = errors.New("leadwire: unknown event name")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("leadwire: store is closed")
)
