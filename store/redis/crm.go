package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/id"
)

// CRM entities round-trip through their own JSON tags; id.ID marshals as
// text, so no separate storage models are needed here.

func (s *Store) CreateLead(ctx context.Context, l *crm.Lead) error {
	if err := s.setEntity(ctx, entityKey(prefixLead, l.ID.String()), l); err != nil {
		return fmt.Errorf("leadwire/redis: create lead: %w", err)
	}
	return s.rdb.ZAdd(ctx, zLeadAll, goredis.Z{Score: scoreFromTime(l.CreatedAt), Member: l.ID.String()}).Err()
}

func (s *Store) GetLead(ctx context.Context, leadID id.ID) (*crm.Lead, error) {
	var l crm.Lead
	if err := s.getEntity(ctx, entityKey(prefixLead, leadID.String()), &l); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrLeadNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get lead: %w", err)
	}
	return &l, nil
}

func (s *Store) UpdateLead(ctx context.Context, l *crm.Lead) error {
	key := entityKey(prefixLead, l.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: update lead exists: %w", err)
	}
	if exists == 0 {
		return leadwire.ErrLeadNotFound
	}
	l.UpdatedAt = now()
	return s.setEntity(ctx, key, l)
}

func (s *Store) DeleteLead(ctx context.Context, leadID id.ID) error {
	key := entityKey(prefixLead, leadID.String())
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: delete lead: %w", err)
	}
	if deleted == 0 {
		return leadwire.ErrLeadNotFound
	}
	s.rdb.ZRem(ctx, zLeadAll, leadID.String())

	// Cascade interactions.
	intIDs, err := s.rdb.ZRange(ctx, zInteractionLead+leadID.String(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: delete lead interactions: %w", err)
	}
	if len(intIDs) > 0 {
		pipe := s.rdb.Pipeline()
		for _, intID := range intIDs {
			pipe.Del(ctx, entityKey(prefixInteraction, intID))
		}
		pipe.Del(ctx, zInteractionLead+leadID.String())
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("leadwire/redis: cascade interactions: %w", err)
		}
	}
	return nil
}

func (s *Store) ListLeads(ctx context.Context, filter crm.LeadFilter) ([]*crm.Lead, error) {
	ids, err := s.rdb.ZRange(ctx, zLeadAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list leads: %w", err)
	}

	result := make([]*crm.Lead, 0, len(ids))
	for _, leadID := range ids {
		var l crm.Lead
		if err := s.getEntity(ctx, entityKey(prefixLead, leadID), &l); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
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
		result = append(result, &l)
	}

	return applyPagination(result, filter.Offset, filter.Limit), nil
}

func (s *Store) CreateInteraction(ctx context.Context, in *crm.Interaction) error {
	if err := s.setEntity(ctx, entityKey(prefixInteraction, in.ID.String()), in); err != nil {
		return fmt.Errorf("leadwire/redis: create interaction: %w", err)
	}
	return s.rdb.ZAdd(ctx, zInteractionLead+in.LeadID.String(),
		goredis.Z{Score: scoreFromTime(in.CreatedAt), Member: in.ID.String()}).Err()
}

func (s *Store) GetInteraction(ctx context.Context, intID id.ID) (*crm.Interaction, error) {
	var in crm.Interaction
	if err := s.getEntity(ctx, entityKey(prefixInteraction, intID.String()), &in); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrInteractionNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get interaction: %w", err)
	}
	return &in, nil
}

func (s *Store) UpdateInteraction(ctx context.Context, in *crm.Interaction) error {
	key := entityKey(prefixInteraction, in.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: update interaction exists: %w", err)
	}
	if exists == 0 {
		return leadwire.ErrInteractionNotFound
	}
	in.UpdatedAt = now()
	return s.setEntity(ctx, key, in)
}

func (s *Store) DeleteInteraction(ctx context.Context, intID id.ID) error {
	in, err := s.GetInteraction(ctx, intID)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, entityKey(prefixInteraction, intID.String()))
	pipe.ZRem(ctx, zInteractionLead+in.LeadID.String(), intID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leadwire/redis: delete interaction: %w", err)
	}
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, leadID id.ID) ([]*crm.Interaction, error) {
	ids, err := s.rdb.ZRange(ctx, zInteractionLead+leadID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list interactions: %w", err)
	}

	result := make([]*crm.Interaction, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var in crm.Interaction
		if err := s.getEntity(ctx, entityKey(prefixInteraction, ids[i]), &in); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &in)
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *crm.Product) error {
	if err := s.setEntity(ctx, entityKey(prefixProduct, p.ID.String()), p); err != nil {
		return fmt.Errorf("leadwire/redis: create product: %w", err)
	}
	return s.rdb.ZAdd(ctx, zProductAll, goredis.Z{Score: scoreFromTime(p.CreatedAt), Member: p.ID.String()}).Err()
}

func (s *Store) GetProduct(ctx context.Context, prodID id.ID) (*crm.Product, error) {
	var p crm.Product
	if err := s.getEntity(ctx, entityKey(prefixProduct, prodID.String()), &p); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrProductNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get product: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *crm.Product) error {
	key := entityKey(prefixProduct, p.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: update product exists: %w", err)
	}
	if exists == 0 {
		return leadwire.ErrProductNotFound
	}
	p.UpdatedAt = now()
	return s.setEntity(ctx, key, p)
}

func (s *Store) DeleteProduct(ctx context.Context, prodID id.ID) error {
	key := entityKey(prefixProduct, prodID.String())
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: delete product: %w", err)
	}
	if deleted == 0 {
		return leadwire.ErrProductNotFound
	}
	s.rdb.ZRem(ctx, zProductAll, prodID.String())
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*crm.Product, error) {
	ids, err := s.rdb.ZRange(ctx, zProductAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list products: %w", err)
	}

	result := make([]*crm.Product, 0, len(ids))
	for _, prodID := range ids {
		var p crm.Product
		if err := s.getEntity(ctx, entityKey(prefixProduct, prodID), &p); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &p)
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, u *crm.User) error {
	if err := s.setEntity(ctx, entityKey(prefixUser, u.ID.String()), u); err != nil {
		return fmt.Errorf("leadwire/redis: create user: %w", err)
	}
	return s.rdb.ZAdd(ctx, zUserAll, goredis.Z{Score: scoreFromTime(u.CreatedAt), Member: u.ID.String()}).Err()
}

func (s *Store) GetUser(ctx context.Context, userID id.ID) (*crm.User, error) {
	var u crm.User
	if err := s.getEntity(ctx, entityKey(prefixUser, userID.String()), &u); err != nil {
		if isRedisNil(err) {
			return nil, leadwire.ErrUserNotFound
		}
		return nil, fmt.Errorf("leadwire/redis: get user: %w", err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *crm.User) error {
	key := entityKey(prefixUser, u.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leadwire/redis: update user exists: %w", err)
	}
	if exists == 0 {
		return leadwire.ErrUserNotFound
	}
	u.UpdatedAt = now()
	return s.setEntity(ctx, key, u)
}

func (s *Store) ListUsers(ctx context.Context) ([]*crm.User, error) {
	ids, err := s.rdb.ZRange(ctx, zUserAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("leadwire/redis: list users: %w", err)
	}

	result := make([]*crm.User, 0, len(ids))
	for _, userID := range ids {
		var u crm.User
		if err := s.getEntity(ctx, entityKey(prefixUser, userID), &u); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &u)
	}
	return result, nil
}
