package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// dlqModel is the JSON representation stored in Redis.
type dlqModel struct {
	ID             string          `json:"id"`
	DeliveryID     string          `json:"delivery_id"`
	WebhookID      string          `json:"webhook_id"`
	Event          string          `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	Error          string          `json:"error"`
	AttemptCount   int             `json:"attempt_count"`
	LastStatusCode int             `json:"last_status_code"`
	FailedAt       time.Time       `json:"failed_at"`
	ReplayedAt     *time.Time      `json:"replayed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toDLQModel(e *dlq.Entry) *dlqModel {
	return &dlqModel{
		ID:             e.ID.String(),
		DeliveryID:     e.DeliveryID.String(),
		WebhookID:      e.WebhookID.String(),
		Event:          e.Event.String(),
		Payload:        e.Payload,
		Error:          e.Error,
		AttemptCount:   e.AttemptCount,
		LastStatusCode: e.LastStatusCode,
		FailedAt:       e.FailedAt,
		ReplayedAt:     e.ReplayedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromDLQModel(m *dlqModel) (*dlq.Entry, error) {
	entryID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse DLQ ID %q: %w", m.ID, err)
	}
	delID, err := id.ParseDeliveryID(m.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &dlq.Entry{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             entryID,
		DeliveryID:     delID,
		WebhookID:      whID,
		Event:          event.Name(m.Event),
		Payload:        m.Payload,
		Error:          m.Error,
		AttemptCount:   m.AttemptCount,
		LastStatusCode: m.LastStatusCode,
		FailedAt:       m.FailedAt,
		ReplayedAt:     m.ReplayedAt,
	}, nil
}

func (s *Store) PushEntry(ctx context.Context, e *dlq.Entry) error {
	m := toDLQModel(e)
	if err := s.setEntity(ctx, entityKey(prefixDLQ, m.ID), m); err != nil {
		return fmt.Errorf("leadwire/redis: push DLQ entry: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zDLQAll, goredis.Z{Score: scoreFromTime(m.FailedAt), Member: m.ID})
	pipe.ZAdd(ctx, zDLQWebhook+m.WebhookID, goredis.Z{Score: scoreFromTime(m.FailedAt), Member: m.ID})
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("leadwire/redis: push DLQ indexes: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.ID) (*dlq.Entry, error) {
	var m dlqModel
	if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrDLQNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get DLQ entry: %w", err)
	}
	return fromDLQModel(&m)
}

func (s *Store) ListEntries(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	indexKey := zDLQAll
	if !opts.WebhookID.IsNil() {
		indexKey = zDLQWebhook + opts.WebhookID.String()
	}

	ids, err := s.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list DLQ entries: %w", err)
	}

	result := make([]*dlq.Entry, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var m dlqModel
		if err := s.getEntity(ctx, entityKey(prefixDLQ, ids[i]), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.Event != "" && event.Name(m.Event) != opts.Event {
			continue
		}
		e, err := fromDLQModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) MarkReplayed(ctx context.Context, entryID id.ID) error {
	key := entityKey(prefixDLQ, entryID.String())
	var m dlqModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return leadwire.ErrDLQNotFound
		}
		return fmt.Errorf("leadwire/redis: mark replayed: %w", err)
	}
	ts := now()
	m.ReplayedAt = &ts
	m.UpdatedAt = ts
	return s.setEntity(ctx, key, &m)
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.ID) error {
	key := entityKey(prefixDLQ, entryID.String())

	var m dlqModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return leadwire.ErrDLQNotFound
		}
		return fmt.Errorf("leadwire/redis: delete DLQ entry: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, zDLQAll, m.ID)
	pipe.ZRem(ctx, zDLQWebhook+m.WebhookID, m.ID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("leadwire/redis: delete DLQ indexes: %w", err)
	}
	return nil
}

func (s *Store) CountEntries(ctx context.Context, opts dlq.ListOpts) (int, error) {
	if opts.WebhookID.IsNil() && opts.Event == "" {
		count, err := s.rdb.ZCard(ctx, zDLQAll).Result()
		if err != nil {
			return 0, fmt.Errorf("leadwire/redis: count DLQ entries: %w", err)
		}
		return int(count), nil
	}

	// Filtered counts walk the index.
	opts.Offset = 0
	opts.Limit = 0
	entries, err := s.ListEntries(ctx, opts)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
