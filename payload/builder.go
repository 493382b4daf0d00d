// Package payload assembles the canonical JSON bodies delivered to webhook
// receivers, enriching raw entity snapshots with human-readable joins
// (product names, lead summaries) at build time.
package payload

import (
	"context"
	"fmt"
	"time"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/event"
)

// Actor is the acting principal as it appears on the wire. Email is null for
// the system sentinel.
type Actor struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Role  string  `json:"role"`
}

// LeadBody is the lead object in lead.* payloads. Value aliases the lead's
// deal value.
type LeadBody struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Phone                  string     `json:"phone,omitempty"`
	Company                string     `json:"company,omitempty"`
	Status                 string     `json:"status"`
	Priority               string     `json:"priority"`
	Value                  float64    `json:"value"`
	FollowUpDate           *time.Time `json:"followUpDate,omitempty"`
	Notes                  string     `json:"notes,omitempty"`
	InterestedProductNames []string   `json:"interestedProductNames"`
}

// LeadSummary is the abbreviated lead object attached to interaction.* payloads.
type LeadSummary struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company string  `json:"company,omitempty"`
	Status  string  `json:"status"`
	Value   float64 `json:"value"`
}

// InteractionBody is the interaction object in interaction.* payloads.
type InteractionBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ProductBody is the product snapshot in product.* payloads.
type ProductBody struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Active      bool    `json:"active"`
}

// UserBody is the user snapshot in user.* payloads.
type UserBody struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// LeadEvent is the wire shape for lead.* events.
type LeadEvent struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	Lead      LeadBody `json:"lead"`
	Actor     Actor    `json:"actor"`
}

// InteractionEvent is the wire shape for interaction.* events.
type InteractionEvent struct {
	Event       string          `json:"event"`
	Timestamp   string          `json:"timestamp"`
	Interaction InteractionBody `json:"interaction"`
	Lead        *LeadSummary    `json:"lead,omitempty"`
	Actor       Actor           `json:"actor"`
}

// ProductEvent is the wire shape for product.* events.
type ProductEvent struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	Product   ProductBody `json:"product"`
	Actor     Actor       `json:"actor"`
}

// UserEvent is the wire shape for user.* events.
type UserEvent struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	User      UserBody `json:"user"`
	Actor     Actor    `json:"actor"`
}

// Builder assembles payloads, joining referenced records through a read-only
// CRM view. Builds have no side effects; a failure is a programming error
// (unknown snapshot type), not a runtime condition to recover from.
type Builder struct {
	reader crm.Reader
}

// NewBuilder creates a payload builder over the given read-only CRM view.
func NewBuilder(reader crm.Reader) *Builder {
	return &Builder{reader: reader}
}

// Build assembles the canonical payload for a domain event. The timestamp is
// the build time, RFC 3339 UTC.
func (b *Builder) Build(ctx context.Context, evt event.Event) (any, error) {
	ts := time.Now().UTC().Format(time.RFC3339)
	actor := buildActor(evt.Actor)

	switch snap := evt.Entity.(type) {
	case crm.Lead:
		return LeadEvent{
			Event:     evt.Name.String(),
			Timestamp: ts,
			Lead:      b.buildLead(ctx, snap),
			Actor:     actor,
		}, nil

	case crm.Interaction:
		return InteractionEvent{
			Event:     evt.Name.String(),
			Timestamp: ts,
			Interaction: InteractionBody{
				ID:   snap.ID.String(),
				Type: snap.Type,
				Text: snap.Text,
			},
			Lead:  b.buildLeadSummary(ctx, snap),
			Actor: actor,
		}, nil

	case crm.Product:
		return ProductEvent{
			Event:     evt.Name.String(),
			Timestamp: ts,
			Product: ProductBody{
				ID:          snap.ID.String(),
				Name:        snap.Name,
				Description: snap.Description,
				Price:       snap.Price,
				Category:    snap.Category,
				Active:      snap.Active,
			},
			Actor: actor,
		}, nil

	case crm.User:
		return UserEvent{
			Event:     evt.Name.String(),
			Timestamp: ts,
			User: UserBody{
				ID:     snap.ID.String(),
				Name:   snap.Name,
				Email:  snap.Email,
				Role:   snap.Role,
				Active: snap.Active,
			},
			Actor: actor,
		}, nil

	default:
		return nil, fmt.Errorf("payload: unsupported snapshot type %T for event %s", evt.Entity, evt.Name)
	}
}

// buildLead resolves interested product names at build time. Products that no
// longer exist are silently omitted.
func (b *Builder) buildLead(ctx context.Context, l crm.Lead) LeadBody {
	names := make([]string, 0, len(l.InterestedProducts))
	for _, prodID := range l.InterestedProducts {
		p, err := b.reader.GetProduct(ctx, prodID)
		if err != nil {
			continue
		}
		names = append(names, p.Name)
	}

	return LeadBody{
		ID:                     l.ID.String(),
		Name:                   l.Name,
		Email:                  l.Email,
		Phone:                  l.Phone,
		Company:                l.Company,
		Status:                 l.Status,
		Priority:               l.Priority,
		Value:                  l.DealValue,
		FollowUpDate:           l.FollowUpDate,
		Notes:                  l.Notes,
		InterestedProductNames: names,
	}
}

// buildLeadSummary joins the interaction's lead at build time. A lead that no
// longer exists yields no lead object rather than an error.
func (b *Builder) buildLeadSummary(ctx context.Context, in crm.Interaction) *LeadSummary {
	l, err := b.reader.GetLead(ctx, in.LeadID)
	if err != nil {
		return nil
	}
	return &LeadSummary{
		ID:      l.ID.String(),
		Name:    l.Name,
		Email:   l.Email,
		Company: l.Company,
		Status:  l.Status,
		Value:   l.DealValue,
	}
}

// buildActor maps an actor to its wire shape, substituting the system
// sentinel when no actor is present.
func buildActor(a event.Actor) Actor {
	if a.IsZero() {
		sys := event.System()
		return Actor{Name: sys.Name, Email: nil, Role: sys.Role}
	}

	out := Actor{Name: a.Name, Role: a.Role}
	if a.Email != "" {
		email := a.Email
		out.Email = &email
	}
	return out
}
