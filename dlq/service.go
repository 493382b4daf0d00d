package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/webhook"
)

// Requeuer puts a replayed delivery back onto the pending queue.
type Requeuer interface {
	Enqueue(ctx context.Context, d *delivery.Delivery) error
}

// Service manages the dead letter queue.
type Service struct {
	store       Store
	requeuer    Requeuer
	maxAttempts int
	logger      *slog.Logger
}

// NewService creates a DLQ service. maxAttempts is the attempt budget given
// to replayed deliveries.
func NewService(store Store, requeuer Requeuer, maxAttempts int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		requeuer:    requeuer,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// PushFailed records a permanently failed delivery as a dead letter entry.
// It satisfies delivery.DLQPusher.
func (s *Service) PushFailed(ctx context.Context, d *delivery.Delivery, wh *webhook.Webhook, lastError string, lastStatusCode int) error {
	e := &Entry{
		Entity:         entity.New(),
		ID:             id.NewDLQID(),
		DeliveryID:     d.ID,
		WebhookID:      wh.ID,
		Event:          d.Event,
		Payload:        d.Payload,
		Error:          lastError,
		AttemptCount:   d.AttemptCount,
		LastStatusCode: lastStatusCode,
		FailedAt:       time.Now().UTC(),
	}
	return s.store.PushEntry(ctx, e)
}

// Get returns a single entry.
func (s *Service) Get(ctx context.Context, entryID id.ID) (*Entry, error) {
	return s.store.GetEntry(ctx, entryID)
}

// List returns entries matching opts, newest first.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	return s.store.ListEntries(ctx, opts)
}

// Count returns the number of entries matching opts.
func (s *Service) Count(ctx context.Context, opts ListOpts) (int, error) {
	return s.store.CountEntries(ctx, opts)
}

// Replay re-enqueues a dead letter entry as a fresh pending delivery with a
// full attempt budget, and marks the entry replayed. Replaying an already
// replayed entry enqueues it again.
func (s *Service) Replay(ctx context.Context, entryID id.ID) (*delivery.Delivery, error) {
	e, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	d := &delivery.Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		WebhookID:     e.WebhookID,
		Event:         e.Event,
		Payload:       e.Payload,
		State:         delivery.StatePending,
		MaxAttempts:   s.maxAttempts,
		NextAttemptAt: time.Now().UTC(),
	}

	if err := s.requeuer.Enqueue(ctx, d); err != nil {
		return nil, fmt.Errorf("enqueue replay: %w", err)
	}

	if err := s.store.MarkReplayed(ctx, entryID); err != nil {
		s.logger.ErrorContext(ctx, "mark replayed failed",
			"entry_id", entryID, "error", err)
	}

	s.logger.InfoContext(ctx, "dead letter replayed",
		"entry_id", entryID, "delivery_id", d.ID, "webhook_id", d.WebhookID)
	return d, nil
}

// ReplayAll replays every entry matching opts and returns the new
// deliveries. It continues past individual failures.
func (s *Service) ReplayAll(ctx context.Context, opts ListOpts) ([]*delivery.Delivery, error) {
	opts.Offset = 0
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}
	entries, err := s.store.ListEntries(ctx, opts)
	if err != nil {
		return nil, err
	}

	replayed := make([]*delivery.Delivery, 0, len(entries))
	for _, e := range entries {
		d, err := s.Replay(ctx, e.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "bulk replay entry failed",
				"entry_id", e.ID, "error", err)
			continue
		}
		replayed = append(replayed, d)
	}
	return replayed, nil
}

// Delete removes a single entry.
func (s *Service) Delete(ctx context.Context, entryID id.ID) error {
	return s.store.DeleteEntry(ctx, entryID)
}

// Purge deletes every entry matching opts and returns how many were removed.
func (s *Service) Purge(ctx context.Context, opts ListOpts) (int, error) {
	opts.Offset = 0
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}
	entries, err := s.store.ListEntries(ctx, opts)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, e := range entries {
		if err := s.store.DeleteEntry(ctx, e.ID); err != nil {
			s.logger.ErrorContext(ctx, "purge entry failed",
				"entry_id", e.ID, "error", err)
			continue
		}
		purged++
	}
	return purged, nil
}
