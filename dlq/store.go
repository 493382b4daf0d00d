package dlq

import (
	"context"

	"github.com/leadwire/leadwire/id"
)

// Store is the persistence contract for dead letter entries.
type Store interface {
	// PushEntry appends an entry to the dead letter queue.
	PushEntry(ctx context.Context, e *Entry) error

	// GetEntry returns an entry by ID, or leadwire.ErrDLQNotFound.
	GetEntry(ctx context.Context, entryID id.ID) (*Entry, error)

	// ListEntries returns entries matching opts, newest first.
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// MarkReplayed records that an entry was replayed.
	MarkReplayed(ctx context.Context, entryID id.ID) error

	// DeleteEntry removes an entry.
	DeleteEntry(ctx context.Context, entryID id.ID) error

	// CountEntries returns the number of entries matching opts.
	CountEntries(ctx context.Context, opts ListOpts) (int, error)
}
