package crm

import (
	"context"

	"github.com/leadwire/leadwire/id"
)

// Store is the record-store contract for CRM entities. The relational
// schema behind it is owned elsewhere; this package consumes it as simple
// create/read/update/delete by id plus filtered listing.
type Store interface {
	// CreateLead persists a new lead.
	CreateLead(ctx context.Context, l *Lead) error

	// GetLead returns a lead by ID.
	GetLead(ctx context.Context, leadID id.ID) (*Lead, error)

	// UpdateLead modifies an existing lead.
	UpdateLead(ctx context.Context, l *Lead) error

	// DeleteLead removes a lead.
	DeleteLead(ctx context.Context, leadID id.ID) error

	// ListLeads returns leads matching the filter.
	ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error)

	// CreateInteraction persists a new interaction.
	CreateInteraction(ctx context.Context, in *Interaction) error

	// GetInteraction returns an interaction by ID.
	GetInteraction(ctx context.Context, intID id.ID) (*Interaction, error)

	// UpdateInteraction modifies an existing interaction.
	UpdateInteraction(ctx context.Context, in *Interaction) error

	// DeleteInteraction removes an interaction.
	DeleteInteraction(ctx context.Context, intID id.ID) error

	// ListInteractions returns interactions for a lead, newest first.
	ListInteractions(ctx context.Context, leadID id.ID) ([]*Interaction, error)

	// CreateProduct persists a new product.
	CreateProduct(ctx context.Context, p *Product) error

	// GetProduct returns a product by ID.
	GetProduct(ctx context.Context, prodID id.ID) (*Product, error)

	// UpdateProduct modifies an existing product.
	UpdateProduct(ctx context.Context, p *Product) error

	// DeleteProduct removes a product.
	DeleteProduct(ctx context.Context, prodID id.ID) error

	// ListProducts returns all products.
	ListProducts(ctx context.Context) ([]*Product, error)

	// CreateUser persists a new user.
	CreateUser(ctx context.Context, u *User) error

	// GetUser returns a user by ID.
	GetUser(ctx context.Context, userID id.ID) (*User, error)

	// UpdateUser modifies an existing user.
	UpdateUser(ctx context.Context, u *User) error

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*User, error)
}

// Reader is the read-only subset the payload builder joins against.
type Reader interface {
	GetLead(ctx context.Context, leadID id.ID) (*Lead, error)
	GetProduct(ctx context.Context, prodID id.ID) (*Product, error)
	GetUser(ctx context.Context, userID id.ID) (*User, error)
}
