package dlq_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/webhook"
)

type fakeStore struct {
	entries  []*dlq.Entry
	replayed []id.ID
	deleted  []id.ID
}

func (f *fakeStore) PushEntry(_ context.Context, e *dlq.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) GetEntry(_ context.Context, entryID id.ID) (*dlq.Entry, error) {
	for _, e := range f.entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, leadwire.ErrDLQNotFound
}

func (f *fakeStore) ListEntries(_ context.Context, _ dlq.ListOpts) ([]*dlq.Entry, error) {
	return f.entries, nil
}

func (f *fakeStore) MarkReplayed(_ context.Context, entryID id.ID) error {
	f.replayed = append(f.replayed, entryID)
	return nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, entryID id.ID) error {
	f.deleted = append(f.deleted, entryID)
	for i, e := range f.entries {
		if e.ID == entryID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) CountEntries(_ context.Context, _ dlq.ListOpts) (int, error) {
	return len(f.entries), nil
}

type fakeRequeuer struct {
	enqueued []*delivery.Delivery
}

func (f *fakeRequeuer) Enqueue(_ context.Context, d *delivery.Delivery) error {
	f.enqueued = append(f.enqueued, d)
	return nil
}

func TestPushFailed(t *testing.T) {
	store := &fakeStore{}
	svc := dlq.NewService(store, &fakeRequeuer{}, 5, nil)

	wh := &webhook.Webhook{ID: id.NewWebhookID()}
	d := &delivery.Delivery{
		Entity:       entity.New(),
		ID:           id.NewDeliveryID(),
		WebhookID:    wh.ID,
		Event:        event.LeadCreated,
		Payload:      json.RawMessage(`{"event":"lead.created"}`),
		AttemptCount: 5,
	}

	if err := svc.PushFailed(context.Background(), d, wh, "connection refused", 0); err != nil {
		t.Fatalf("PushFailed: %v", err)
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.WebhookID != wh.ID || e.DeliveryID != d.ID {
		t.Error("entry should reference the failed delivery and its webhook")
	}
	if e.Error != "connection refused" {
		t.Errorf("Error = %q", e.Error)
	}
	if e.AttemptCount != 5 {
		t.Errorf("AttemptCount = %d, want 5", e.AttemptCount)
	}
	if string(e.Payload) != string(d.Payload) {
		t.Error("payload should be carried over verbatim")
	}
	if e.FailedAt.IsZero() {
		t.Error("FailedAt should be set")
	}
}

func TestReplay(t *testing.T) {
	store := &fakeStore{}
	requeuer := &fakeRequeuer{}
	svc := dlq.NewService(store, requeuer, 5, nil)

	whID := id.NewWebhookID()
	entry := &dlq.Entry{
		Entity:       entity.New(),
		ID:           id.NewDLQID(),
		DeliveryID:   id.NewDeliveryID(),
		WebhookID:    whID,
		Event:        event.LeadUpdated,
		Payload:      json.RawMessage(`{"event":"lead.updated"}`),
		AttemptCount: 5,
		FailedAt:     time.Now().UTC(),
	}
	store.entries = append(store.entries, entry)

	d, err := svc.Replay(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if len(requeuer.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued delivery, got %d", len(requeuer.enqueued))
	}
	if d.State != delivery.StatePending {
		t.Errorf("State = %q, want pending", d.State)
	}
	if d.AttemptCount != 0 {
		t.Error("replayed delivery should start with a fresh attempt budget")
	}
	if d.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", d.MaxAttempts)
	}
	if d.WebhookID != whID || d.Event != event.LeadUpdated {
		t.Error("replayed delivery should target the original webhook and event")
	}
	if string(d.Payload) != string(entry.Payload) {
		t.Error("replayed delivery should reuse the original payload")
	}
	if d.ID == entry.DeliveryID {
		t.Error("replay should mint a new delivery ID")
	}
	if len(store.replayed) != 1 || store.replayed[0] != entry.ID {
		t.Error("entry should be marked replayed")
	}
}

func TestReplayAll(t *testing.T) {
	store := &fakeStore{}
	requeuer := &fakeRequeuer{}
	svc := dlq.NewService(store, requeuer, 3, nil)

	for i := 0; i < 3; i++ {
		store.entries = append(store.entries, &dlq.Entry{
			Entity:    entity.New(),
			ID:        id.NewDLQID(),
			WebhookID: id.NewWebhookID(),
			Event:     event.LeadCreated,
			Payload:   json.RawMessage(`{}`),
			FailedAt:  time.Now().UTC(),
		})
	}

	replayed, err := svc.ReplayAll(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if len(replayed) != 3 {
		t.Fatalf("expected 3 replayed, got %d", len(replayed))
	}
	if len(requeuer.enqueued) != 3 {
		t.Fatalf("expected 3 enqueued, got %d", len(requeuer.enqueued))
	}
}

func TestPurge(t *testing.T) {
	store := &fakeStore{}
	svc := dlq.NewService(store, &fakeRequeuer{}, 3, nil)

	for i := 0; i < 4; i++ {
		store.entries = append(store.entries, &dlq.Entry{
			Entity:   entity.New(),
			ID:       id.NewDLQID(),
			FailedAt: time.Now().UTC(),
		})
	}

	n, err := svc.Purge(context.Background(), dlq.ListOpts{})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 4 {
		t.Fatalf("purged %d, want 4", n)
	}
	if len(store.entries) != 0 {
		t.Fatalf("%d entries remain", len(store.entries))
	}
}
