// Package store defines the composite Store interface for all Leadwire
// persistence.
//
// Each subsystem defines its own store interface next to its domain types,
// and the aggregate Store composes them all. Drivers live in subpackages.
package store

import (
	"context"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/webhook"
)

// Store is the aggregate persistence interface implemented by every driver.
type Store interface {
	webhook.Store
	delivery.Store
	dlq.Store
	crm.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
