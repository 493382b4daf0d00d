// Package event defines the domain event vocabulary and actor context
// carried by every CRM mutation into webhook fan-out.
package event

import "time"

// Name is a dot-separated domain event name (e.g. "lead.created").
type Name string

// The closed vocabulary of domain events. Every user- or agent-triggered
// mutation emits exactly one of these.
const (
	LeadCreated  Name = "lead.created"
	LeadUpdated  Name = "lead.updated"
	LeadDeleted  Name = "lead.deleted"
	LeadAssigned Name = "lead.assigned"

	InteractionCreated Name = "interaction.created"
	InteractionUpdated Name = "interaction.updated"
	InteractionDeleted Name = "interaction.deleted"

	ProductCreated Name = "product.created"
	ProductUpdated Name = "product.updated"
	ProductDeleted Name = "product.deleted"

	UserCreated Name = "user.created"
	UserUpdated Name = "user.updated"
)

// Wildcard matches every event name in a webhook subscription.
const Wildcard = "*"

// All returns the full event vocabulary.
func All() []Name {
	return []Name{
		LeadCreated, LeadUpdated, LeadDeleted, LeadAssigned,
		InteractionCreated, InteractionUpdated, InteractionDeleted,
		ProductCreated, ProductUpdated, ProductDeleted,
		UserCreated, UserUpdated,
	}
}

// IsValid reports whether name belongs to the event vocabulary.
func IsValid(name Name) bool {
	for _, n := range All() {
		if n == name {
			return true
		}
	}
	return false
}

// String returns the event name as a plain string.
func (n Name) String() string { return string(n) }

// Actor identifies who triggered a mutation: a session user, an MCP agent
// principal, or the system sentinel for unattended mutations.
type Actor struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// System is the sentinel actor for mutations with no human or agent behind them.
func System() Actor {
	return Actor{Name: "system", Role: "system"}
}

// IsZero reports whether no actor information is present.
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Name == "" && a.Email == "" && a.Role == ""
}

// Event is an ephemeral domain event: the name, the full post-mutation
// snapshot of the affected entity, and the acting principal.
type Event struct {
	// Name is the event name from the closed vocabulary.
	Name Name

	// Entity is the full post-mutation snapshot (crm.Lead, crm.Interaction,
	// crm.Product, or crm.User).
	Entity any

	// Actor is the acting principal. The zero value is treated as the
	// system sentinel at payload build time.
	Actor Actor

	// OccurredAt is when the mutation completed.
	OccurredAt time.Time
}
