package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/webhook"
)

// webhookModel is the JSON representation stored in Redis. The secret is
// stored here but never leaves the store layer in serialized form.
type webhookModel struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Events        []string          `json:"events"`
	Headers       map[string]string `json:"headers,omitempty"`
	Secret        string            `json:"secret"`
	Active        bool              `json:"active"`
	RateLimit     int               `json:"rate_limit"`
	LastTriggered *time.Time        `json:"last_triggered,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toWebhookModel(wh *webhook.Webhook) *webhookModel {
	return &webhookModel{
		ID:            wh.ID.String(),
		Name:          wh.Name,
		URL:           wh.URL,
		Events:        wh.Events,
		Headers:       wh.Headers,
		Secret:        wh.Secret,
		Active:        wh.Active,
		RateLimit:     wh.RateLimit,
		LastTriggered: wh.LastTriggered,
		CreatedAt:     wh.CreatedAt,
		UpdatedAt:     wh.UpdatedAt,
	}
}

func fromWebhookModel(m *webhookModel) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	return &webhook.Webhook{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            whID,
		Name:          m.Name,
		URL:           m.URL,
		Events:        m.Events,
		Headers:       m.Headers,
		Secret:        m.Secret,
		Active:        m.Active,
		RateLimit:     m.RateLimit,
		LastTriggered: m.LastTriggered,
	}, nil
}

func (s *Store) CreateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	m := toWebhookModel(wh)
	if err := s.setEntity(ctx, entityKey(prefixWebhook, m.ID), m); err != nil {
		return fmt.Errorf("leadwire/redis: create webhook: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zWebhookAll, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}).Err(); err != nil {
		return fmt.Errorf("leadwire/redis: create webhook index: %w", err)
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error) {
	var m webhookModel
	if err := s.getEntity(ctx, entityKey(prefixWebhook, whID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get webhook: %w", err)
	}
	return fromWebhookModel(&m)
}

func (s *Store) UpdateWebhook(ctx context.Context, wh *webhook.Webhook) error {
	key := entityKey(prefixWebhook, wh.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: update webhook exists: %w", err)
	}
	if exists == 0 {
		return leadwire.ErrWebhookNotFound
	}

	m := toWebhookModel(wh)
	m.UpdatedAt = now()
	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("leadwire/redis: update webhook: %w", err)
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	key := entityKey(prefixWebhook, whID.String())
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: delete webhook: %w", err)
	}
	if deleted == 0 {
		return leadwire.ErrWebhookNotFound
	}
	s.rdb.ZRem(ctx, zWebhookAll, whID.String())
	return nil
}

func (s *Store) ListWebhooks(ctx context.Context, opts webhook.ListOpts) ([]*webhook.Webhook, error) {
	ids, err := s.rdb.ZRange(ctx, zWebhookAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list webhooks: %w", err)
	}

	result := make([]*webhook.Webhook, 0, len(ids))
	for _, whID := range ids {
		var m webhookModel
		if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.Active != nil && m.Active != *opts.Active {
			continue
		}
		wh, err := fromWebhookModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, wh)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) Resolve(ctx context.Context, name event.Name) ([]*webhook.Webhook, error) {
	ids, err := s.rdb.ZRange(ctx, zWebhookAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: resolve webhooks: %w", err)
	}

	var result []*webhook.Webhook
	for _, whID := range ids {
		var m webhookModel
		if err := s.getEntity(ctx, entityKey(prefixWebhook, whID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if !m.Active || !event.MatchAny(m.Events, name) {
			continue
		}
		wh, err := fromWebhookModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, wh)
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, whID id.ID, active bool) error {
	key := entityKey(prefixWebhook, whID.String())
	var m webhookModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return leadwire.ErrWebhookNotFound
		}
		return fmt.Errorf("leadwire/redis: set active: %w", err)
	}
	m.Active = active
	m.UpdatedAt = now()
	return s.setEntity(ctx, key, &m)
}

func (s *Store) MarkTriggered(ctx context.Context, whID id.ID, ts time.Time) error {
	key := entityKey(prefixWebhook, whID.String())
	var m webhookModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return leadwire.ErrWebhookNotFound
		}
		return fmt.Errorf("leadwire/redis: mark triggered: %w", err)
	}
	m.LastTriggered = &ts
	return s.setEntity(ctx, key, &m)
}
