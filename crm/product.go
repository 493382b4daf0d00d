package crm

import (
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// Product is an AI service offering leads can be interested in.
type Product struct {
	entity.Entity

	// ID is the unique TypeID for this product.
	ID id.ID `json:"id"`

	// Name is the product display name.
	Name string `json:"name"`

	// Description is a short product description.
	Description string `json:"description,omitempty"`

	// Price is the list price.
	Price float64 `json:"price"`

	// Category groups related products.
	Category string `json:"category,omitempty"`

	// Active indicates whether the product is currently offered.
	Active bool `json:"active"`
}

// User is a CRM operator: a sales rep, engineer, or admin.
type User struct {
	entity.Entity

	// ID is the unique TypeID for this user.
	ID id.ID `json:"id"`

	// Name is the user's display name.
	Name string `json:"name"`

	// Email is the user's email address.
	Email string `json:"email"`

	// Role is the user's role (admin, sales, engineer).
	Role string `json:"role"`

	// Active indicates whether the account is enabled.
	Active bool `json:"active"`
}
