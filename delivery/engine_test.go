package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/ratelimit"
	"github.com/leadwire/leadwire/webhook"
)

type engineStore struct {
	mu          sync.Mutex
	pending     []*Delivery
	updated     map[string]*Delivery
	webhooks    map[string]*webhook.Webhook
	triggered   int
	deactivated []string
	getFailures int
}

func newEngineStore() *engineStore {
	return &engineStore{
		updated:  make(map[string]*Delivery),
		webhooks: make(map[string]*webhook.Webhook),
	}
}

func (s *engineStore) Dequeue(_ context.Context, limit int) ([]*Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var due []*Delivery
	var rest []*Delivery
	for _, d := range s.pending {
		if len(due) < limit && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		} else {
			rest = append(rest, d)
		}
	}
	s.pending = rest
	return due, nil
}

func (s *engineStore) UpdateDelivery(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *d
	s.updated[d.ID.String()] = &cp
	if d.State == StatePending {
		s.pending = append(s.pending, d)
	}
	return nil
}

func (s *engineStore) GetWebhook(_ context.Context, whID id.ID) (*webhook.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getFailures > 0 {
		s.getFailures--
		return nil, errors.New("redis: connection refused")
	}
	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return nil, webhook.ErrNotFound
	}
	cp := *wh
	return &cp, nil
}

func (s *engineStore) SetActive(_ context.Context, whID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wh, ok := s.webhooks[whID.String()]; ok {
		wh.Active = active
	}
	if !active {
		s.deactivated = append(s.deactivated, whID.String())
	}
	return nil
}

func (s *engineStore) MarkTriggered(_ context.Context, whID id.ID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggered++
	return nil
}

func (s *engineStore) delivery(delID id.ID) *Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated[delID.String()]
}

func (s *engineStore) markTriggeredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggered
}

type dlqRecorder struct {
	mu     sync.Mutex
	pushed []*Delivery
}

func (r *dlqRecorder) PushFailed(_ context.Context, d *Delivery, _ *webhook.Webhook, _ string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.pushed = append(r.pushed, &cp)
	return nil
}

func (r *dlqRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushed)
}

func addWebhook(s *engineStore, url string, rateLimit int) *webhook.Webhook {
	wh := &webhook.Webhook{
		Entity:    entity.New(),
		ID:        id.NewWebhookID(),
		Name:      "engine-test",
		URL:       url,
		Events:    []string{"*"},
		Active:    true,
		RateLimit: rateLimit,
	}
	s.webhooks[wh.ID.String()] = wh
	return wh
}

func addPending(s *engineStore, whID id.ID, maxAttempts int) *Delivery {
	d := &Delivery{
		Entity:        entity.New(),
		ID:            id.NewDeliveryID(),
		WebhookID:     whID,
		Event:         "lead.created",
		Payload:       json.RawMessage(`{"event":"lead.created"}`),
		State:         StatePending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: time.Now().UTC(),
	}
	s.pending = append(s.pending, d)
	return d
}

func startEngine(t *testing.T, s *engineStore, dlq DLQPusher, limiter *ratelimit.Limiter) {
	t.Helper()
	e := NewEngine(s, dlq, EngineConfig{
		Concurrency:    4,
		PollInterval:   10 * time.Millisecond,
		BatchSize:      10,
		RequestTimeout: 2 * time.Second,
		RetrySchedule:  []time.Duration{10 * time.Millisecond},
		Limiter:        limiter,
	}, nil)
	e.Start(t.Context())
	t.Cleanup(func() { e.Stop(context.Background()) })
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngineDelivers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	d := addPending(s, wh.ID, 5)

	startEngine(t, s, &dlqRecorder{}, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateDelivered
	}, "delivery never reached delivered state")

	got := s.delivery(d.ID)
	if got.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", got.AttemptCount)
	}
	if got.LastStatusCode != http.StatusOK {
		t.Errorf("last status = %d", got.LastStatusCode)
	}
	if got.CompletedAt == nil {
		t.Error("completedAt not set")
	}
	if s.markTriggeredCount() == 0 {
		t.Error("markTriggered never called")
	}
}

func TestEngineRetriesThenDLQ(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	d := addPending(s, wh.ID, 2)
	rec := &dlqRecorder{}

	startEngine(t, s, rec, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateFailed
	}, "delivery never failed")

	if got := hits.Load(); got != 2 {
		t.Errorf("receiver hit %d times, want 2", got)
	}
	if rec.count() != 1 {
		t.Errorf("DLQ pushes = %d, want 1", rec.count())
	}
}

func TestEngineClientErrorGoesStraightToDLQ(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	d := addPending(s, wh.ID, 5)
	rec := &dlqRecorder{}

	startEngine(t, s, rec, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateFailed
	}, "delivery never failed")

	if got := hits.Load(); got != 1 {
		t.Errorf("receiver hit %d times, want 1", got)
	}
	if rec.count() != 1 {
		t.Errorf("DLQ pushes = %d, want 1", rec.count())
	}
}

func TestEngine410DisablesWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	d := addPending(s, wh.ID, 5)
	rec := &dlqRecorder{}

	startEngine(t, s, rec, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateFailed
	}, "delivery never failed")

	s.mu.Lock()
	deactivated := len(s.deactivated) == 1 && s.deactivated[0] == wh.ID.String()
	s.mu.Unlock()
	if !deactivated {
		t.Error("webhook not deactivated after 410")
	}
	if rec.count() != 1 {
		t.Errorf("DLQ pushes = %d, want 1", rec.count())
	}
}

func TestEngineInactiveWebhookFailsDelivery(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	wh.Active = false
	d := addPending(s, wh.ID, 5)

	startEngine(t, s, &dlqRecorder{}, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateFailed
	}, "delivery never failed")

	got := s.delivery(d.ID)
	if got.LastError != "webhook inactive" {
		t.Errorf("last error = %q", got.LastError)
	}
	if got.AttemptCount != 0 {
		t.Errorf("attempt count = %d, want 0", got.AttemptCount)
	}
	if hits.Load() != 0 {
		t.Errorf("receiver hit %d times, want 0", hits.Load())
	}
}

func TestEngineMissingWebhookFailsDelivery(t *testing.T) {
	s := newEngineStore()
	d := addPending(s, id.NewWebhookID(), 5)

	startEngine(t, s, &dlqRecorder{}, nil)

	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateFailed
	}, "delivery never failed")

	if got := s.delivery(d.ID); got.LastError != "webhook no longer exists" {
		t.Errorf("last error = %q", got.LastError)
	}
}

func TestEngineStoreErrorLeavesDeliveryPending(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 0)
	d := addPending(s, wh.ID, 5)
	s.getFailures = 1

	startEngine(t, s, &dlqRecorder{}, nil)

	// The first cycle hits the store error; the delivery must survive it and
	// go out once the store recovers.
	waitFor(t, func() bool {
		got := s.delivery(d.ID)
		return got != nil && got.State == StateDelivered
	}, "delivery never recovered from store error")

	got := s.delivery(d.ID)
	if got.AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", got.AttemptCount)
	}
	if hits.Load() != 1 {
		t.Errorf("receiver hit %d times, want 1", hits.Load())
	}
	if got.LastError == "webhook no longer exists" {
		t.Error("transient store error treated as missing webhook")
	}
}

func TestEngineRateLimitSkips(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newEngineStore()
	wh := addWebhook(s, srv.URL, 1) // 1 delivery per minute
	d1 := addPending(s, wh.ID, 5)
	d2 := addPending(s, wh.ID, 5)

	startEngine(t, s, &dlqRecorder{}, ratelimit.NewLimiter())

	waitFor(t, func() bool { return hits.Load() >= 1 }, "no delivery attempted")

	// Give the engine a few cycles; the second delivery must be rescheduled,
	// not attempted.
	time.Sleep(200 * time.Millisecond)
	if hits.Load() != 1 {
		t.Fatalf("receiver hit %d times, want 1", hits.Load())
	}

	delivered, skipped := s.delivery(d1.ID), s.delivery(d2.ID)
	if delivered == nil || skipped == nil {
		t.Fatal("deliveries not updated")
	}
	if delivered.State == StatePending && skipped.State != StatePending {
		delivered, skipped = skipped, delivered
	}
	if delivered.State != StateDelivered {
		t.Errorf("first delivery state = %s", delivered.State)
	}
	if skipped.State != StatePending {
		t.Errorf("skipped delivery state = %s, want pending", skipped.State)
	}
	if skipped.AttemptCount != 0 {
		t.Errorf("skipped delivery attempts = %d, want 0", skipped.AttemptCount)
	}
	if s.markTriggeredCount() != 1 {
		t.Errorf("markTriggered calls = %d, want 1", s.markTriggeredCount())
	}
}
