package api

import (
	"errors"

	"github.com/leadwire/leadwire"
)

// isNotFound reports whether err is one of the entity-missing sentinels.
func isNotFound(err error) bool {
	for _, sentinel := range []error{
		leadwire.ErrWebhookNotFound,
		leadwire.ErrDeliveryNotFound,
		leadwire.ErrDLQNotFound,
		leadwire.ErrLeadNotFound,
		leadwire.ErrInteractionNotFound,
		leadwire.ErrProductNotFound,
		leadwire.ErrUserNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
