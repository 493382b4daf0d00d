// Package memory provides an in-memory Store implementation for unit
// testing and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	lwstore "github.com/leadwire/leadwire/store"
	"github.com/leadwire/leadwire/webhook"
)

// compile-time interface check.
var _ lwstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	webhooks     map[string]*webhook.Webhook   // keyed by ID string
	deliveries   map[string]*delivery.Delivery // keyed by ID string
	locked       map[string]bool               // simulates SKIP LOCKED
	dlqEntries   map[string]*dlq.Entry         // keyed by ID string
	leads        map[string]*crm.Lead          // keyed by ID string
	interactions map[string]*crm.Interaction   // keyed by ID string
	products     map[string]*crm.Product       // keyed by ID string
	users        map[string]*crm.User          // keyed by ID string

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		webhooks:     make(map[string]*webhook.Webhook),
		deliveries:   make(map[string]*delivery.Delivery),
		locked:       make(map[string]bool),
		dlqEntries:   make(map[string]*dlq.Entry),
		leads:        make(map[string]*crm.Lead),
		interactions: make(map[string]*crm.Interaction),
		products:     make(map[string]*crm.Product),
		users:        make(map[string]*crm.User),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Ping reports whether the store is usable.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return leadwire.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// webhook.Store
// ──────────────────────────────────────────────────

// CreateWebhook persists a new webhook.
func (s *Store) CreateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.webhooks[wh.ID.String()] = wh
	return nil
}

// GetWebhook returns a webhook by ID.
func (s *Store) GetWebhook(_ context.Context, whID id.ID) (*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return nil, leadwire.ErrWebhookNotFound
	}
	return wh, nil
}

// UpdateWebhook modifies an existing webhook.
func (s *Store) UpdateWebhook(_ context.Context, wh *webhook.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[wh.ID.String()]; !ok {
		return leadwire.ErrWebhookNotFound
	}
	wh.UpdatedAt = time.Now().UTC()
	s.webhooks[wh.ID.String()] = wh
	return nil
}

// DeleteWebhook removes a webhook.
func (s *Store) DeleteWebhook(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[whID.String()]; !ok {
		return leadwire.ErrWebhookNotFound
	}
	delete(s.webhooks, whID.String())
	return nil
}

// ListWebhooks returns webhooks, optionally filtered.
func (s *Store) ListWebhooks(_ context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*webhook.Webhook, 0, len(s.webhooks))
	for _, wh := range s.webhooks {
		if opts.Active != nil && wh.Active != *opts.Active {
			continue
		}
		result = append(result, wh)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// Resolve finds all active webhooks subscribed to an event name.
func (s *Store) Resolve(_ context.Context, name event.Name) ([]*webhook.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*webhook.Webhook
	for _, wh := range s.webhooks {
		if !wh.Active {
			continue
		}
		if event.MatchAny(wh.Events, name) {
			result = append(result, wh)
		}
	}
	return result, nil
}

// SetActive activates or deactivates a webhook.
func (s *Store) SetActive(_ context.Context, whID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return leadwire.ErrWebhookNotFound
	}
	wh.Active = active
	wh.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkTriggered records the timestamp of the latest delivery attempt.
func (s *Store) MarkTriggered(_ context.Context, whID id.ID, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.webhooks[whID.String()]
	if !ok {
		return leadwire.ErrWebhookNotFound
	}
	wh.LastTriggered = &ts
	return nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

// Enqueue creates a pending delivery.
func (s *Store) Enqueue(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[d.ID.String()] = d
	return nil
}

// EnqueueBatch creates multiple deliveries atomically.
func (s *Store) EnqueueBatch(_ context.Context, ds []*delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range ds {
		s.deliveries[d.ID.String()] = d
	}
	return nil
}

// copyDelivery returns a shallow copy of the delivery.
func copyDelivery(d *delivery.Delivery) *delivery.Delivery {
	cp := *d
	return &cp
}

// Dequeue fetches pending deliveries ready for attempt (concurrent-safe).
// Returns copies so callers can mutate without holding a lock.
func (s *Store) Dequeue(_ context.Context, limit int) ([]*delivery.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	candidates := make([]*delivery.Delivery, 0, len(s.deliveries))

	for _, d := range s.deliveries {
		if d.State != delivery.StatePending {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		if s.locked[d.ID.String()] {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[j].NextAttemptAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*delivery.Delivery, 0, len(candidates))
	for _, d := range candidates {
		s.locked[d.ID.String()] = true
		result = append(result, copyDelivery(d))
	}

	return result, nil
}

// UpdateDelivery modifies a delivery and releases its lock.
func (s *Store) UpdateDelivery(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deliveries[d.ID.String()]; !ok {
		return leadwire.ErrDeliveryNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	s.deliveries[d.ID.String()] = d
	delete(s.locked, d.ID.String())
	return nil
}

// GetDelivery returns a copy of the delivery by ID.
func (s *Store) GetDelivery(_ context.Context, delID id.ID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[delID.String()]
	if !ok {
		return nil, leadwire.ErrDeliveryNotFound
	}
	return copyDelivery(d), nil
}

// ListByWebhook returns delivery history for a webhook, newest first.
func (s *Store) ListByWebhook(_ context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if d.WebhookID.String() != whID.String() {
			continue
		}
		if opts.State != nil && d.State != *opts.State {
			continue
		}
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// CountPending returns the number of deliveries awaiting attempt.
func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, d := range s.deliveries {
		if d.State == delivery.StatePending {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

// PushEntry appends an entry to the dead letter queue.
func (s *Store) PushEntry(_ context.Context, e *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dlqEntries[e.ID.String()] = e
	return nil
}

// GetEntry returns a DLQ entry by ID.
func (s *Store) GetEntry(_ context.Context, entryID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.dlqEntries[entryID.String()]
	if !ok {
		return nil, leadwire.ErrDLQNotFound
	}
	return e, nil
}

// ListEntries returns DLQ entries matching opts, newest first.
func (s *Store) ListEntries(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(s.dlqEntries))
	for _, e := range s.dlqEntries {
		if !matchDLQOpts(e, opts) {
			continue
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FailedAt.After(result[j].FailedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// MarkReplayed records that an entry was replayed.
func (s *Store) MarkReplayed(_ context.Context, entryID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dlqEntries[entryID.String()]
	if !ok {
		return leadwire.ErrDLQNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// DeleteEntry removes a DLQ entry.
func (s *Store) DeleteEntry(_ context.Context, entryID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dlqEntries[entryID.String()]; !ok {
		return leadwire.ErrDLQNotFound
	}
	delete(s.dlqEntries, entryID.String())
	return nil
}

// CountEntries returns the number of DLQ entries matching opts.
func (s *Store) CountEntries(_ context.Context, opts dlq.ListOpts) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.dlqEntries {
		if matchDLQOpts(e, opts) {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// crm.Store
// ──────────────────────────────────────────────────

// CreateLead persists a new lead.
func (s *Store) CreateLead(_ context.Context, l *crm.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads[l.ID.String()] = l
	return nil
}

// GetLead returns a lead by ID.
func (s *Store) GetLead(_ context.Context, leadID id.ID) (*crm.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[leadID.String()]
	if !ok {
		return nil, leadwire.ErrLeadNotFound
	}
	return l, nil
}

// UpdateLead modifies an existing lead.
func (s *Store) UpdateLead(_ context.Context, l *crm.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[l.ID.String()]; !ok {
		return leadwire.ErrLeadNotFound
	}
	l.UpdatedAt = time.Now().UTC()
	s.leads[l.ID.String()] = l
	return nil
}

// DeleteLead removes a lead and its interactions.
func (s *Store) DeleteLead(_ context.Context, leadID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[leadID.String()]; !ok {
		return leadwire.ErrLeadNotFound
	}
	delete(s.leads, leadID.String())
	for k, in := range s.interactions {
		if in.LeadID.String() == leadID.String() {
			delete(s.interactions, k)
		}
	}
	return nil
}

// ListLeads returns leads matching the filter, oldest first.
func (s *Store) ListLeads(_ context.Context, filter crm.LeadFilter) ([]*crm.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*crm.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && l.Priority != filter.Priority {
			continue
		}
		if !filter.AssignedTo.IsNil() && l.AssignedTo.String() != filter.AssignedTo.String() {
			continue
		}
		if filter.Company != "" && l.Company != filter.Company {
			continue
		}
		result = append(result, l)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, filter.Offset, filter.Limit)
	return result, nil
}

// CreateInteraction persists a new interaction.
func (s *Store) CreateInteraction(_ context.Context, in *crm.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions[in.ID.String()] = in
	return nil
}

// GetInteraction returns an interaction by ID.
func (s *Store) GetInteraction(_ context.Context, intID id.ID) (*crm.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.interactions[intID.String()]
	if !ok {
		return nil, leadwire.ErrInteractionNotFound
	}
	return in, nil
}

// UpdateInteraction modifies an existing interaction.
func (s *Store) UpdateInteraction(_ context.Context, in *crm.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.interactions[in.ID.String()]; !ok {
		return leadwire.ErrInteractionNotFound
	}
	in.UpdatedAt = time.Now().UTC()
	s.interactions[in.ID.String()] = in
	return nil
}

// DeleteInteraction removes an interaction.
func (s *Store) DeleteInteraction(_ context.Context, intID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.interactions[intID.String()]; !ok {
		return leadwire.ErrInteractionNotFound
	}
	delete(s.interactions, intID.String())
	return nil
}

// ListInteractions returns interactions for a lead, newest first.
func (s *Store) ListInteractions(_ context.Context, leadID id.ID) ([]*crm.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*crm.Interaction, 0)
	for _, in := range s.interactions {
		if in.LeadID.String() != leadID.String() {
			continue
		}
		result = append(result, in)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CreateProduct persists a new product.
func (s *Store) CreateProduct(_ context.Context, p *crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ID.String()] = p
	return nil
}

// GetProduct returns a product by ID.
func (s *Store) GetProduct(_ context.Context, prodID id.ID) (*crm.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[prodID.String()]
	if !ok {
		return nil, leadwire.ErrProductNotFound
	}
	return p, nil
}

// UpdateProduct modifies an existing product.
func (s *Store) UpdateProduct(_ context.Context, p *crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID.String()]; !ok {
		return leadwire.ErrProductNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID.String()] = p
	return nil
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(_ context.Context, prodID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[prodID.String()]; !ok {
		return leadwire.ErrProductNotFound
	}
	delete(s.products, prodID.String())
	return nil
}

// ListProducts returns all products, oldest first.
func (s *Store) ListProducts(_ context.Context) ([]*crm.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*crm.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CreateUser persists a new user.
func (s *Store) CreateUser(_ context.Context, u *crm.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID.String()] = u
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(_ context.Context, userID id.ID) (*crm.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID.String()]
	if !ok {
		return nil, leadwire.ErrUserNotFound
	}
	return u, nil
}

// UpdateUser modifies an existing user.
func (s *Store) UpdateUser(_ context.Context, u *crm.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID.String()]; !ok {
		return leadwire.ErrUserNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID.String()] = u
	return nil
}

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(_ context.Context) ([]*crm.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*crm.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matchDLQOpts(e *dlq.Entry, opts dlq.ListOpts) bool {
	if !opts.WebhookID.IsNil() && e.WebhookID.String() != opts.WebhookID.String() {
		return false
	}
	if opts.Event != "" && e.Event != opts.Event {
		return false
	}
	return true
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
