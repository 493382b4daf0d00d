package crm

import (
	"context"
	"log/slog"
	"time"

	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// Emitter receives one domain event per completed mutation. Emission is
// fire-and-forget: implementations must never fail the mutation path.
type Emitter interface {
	Emit(ctx context.Context, name event.Name, snapshot any, actor event.Actor)
}

// Service is the single mutation path for CRM entities. Both the admin REST
// surface and the MCP control channel call through here, so every mutation
// emits exactly one domain event regardless of which surface triggered it.
type Service struct {
	store   Store
	emitter Emitter
	logger  *slog.Logger
}

// NewService creates a CRM service. The emitter may be nil, in which case
// mutations complete without event fan-out.
func NewService(store Store, emitter Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// emit forwards a domain event to the emitter, if one is wired.
func (svc *Service) emit(ctx context.Context, name event.Name, snapshot any, actor event.Actor) {
	if svc.emitter == nil {
		return
	}
	svc.emitter.Emit(ctx, name, snapshot, actor)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "crm validation: " + e.Field + ": " + e.Message
}

// ──────────────────────────────────────────────────
// Leads
// ──────────────────────────────────────────────────

// LeadInput is the creation/update payload for leads. On update, zero-valued
// fields leave the stored value unchanged; pointer fields distinguish
// "not provided" from "clear".
type LeadInput struct {
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Company            string     `json:"company"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	DealValue          *float64   `json:"deal_value"`
	FollowUpDate       *time.Time `json:"follow_up_date"`
	Notes              string     `json:"notes"`
	InterestedProducts []id.ID    `json:"interested_products"`

	// AssignedTo assigns the lead to a user. Nil means unchanged; a pointer
	// to the Nil ID clears the assignment.
	AssignedTo *id.ID `json:"assigned_to"`
}

// CreateLead creates a lead and emits lead.created.
func (svc *Service) CreateLead(ctx context.Context, in LeadInput, actor event.Actor) (*Lead, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	status := in.Status
	if status == "" {
		status = StatusNew
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	l := &Lead{
		Entity:             entity.New(),
		ID:                 id.NewLeadID(),
		Name:               in.Name,
		Email:              in.Email,
		Phone:              in.Phone,
		Company:            in.Company,
		Status:             status,
		Priority:           priority,
		Notes:              in.Notes,
		InterestedProducts: in.InterestedProducts,
		FollowUpDate:       in.FollowUpDate,
	}
	if in.DealValue != nil {
		l.DealValue = *in.DealValue
	}

	if in.AssignedTo != nil && !in.AssignedTo.IsNil() {
		if err := svc.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
		l.AssignedTo = *in.AssignedTo
	}

	if err := svc.store.CreateLead(ctx, l); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.LeadCreated, *l, actor)
	return l, nil
}

// UpdateLead modifies a lead. An update that changes the assignee emits
// lead.assigned; any other update emits lead.updated. Exactly one event
// per mutation.
func (svc *Service) UpdateLead(ctx context.Context, leadID id.ID, in LeadInput, actor event.Actor) (*Lead, error) {
	l, err := svc.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		l.Name = in.Name
	}
	if in.Email != "" {
		l.Email = in.Email
	}
	if in.Phone != "" {
		l.Phone = in.Phone
	}
	if in.Company != "" {
		l.Company = in.Company
	}
	if in.Status != "" {
		l.Status = in.Status
	}
	if in.Priority != "" {
		l.Priority = in.Priority
	}
	if in.DealValue != nil {
		l.DealValue = *in.DealValue
	}
	if in.FollowUpDate != nil {
		l.FollowUpDate = in.FollowUpDate
	}
	if in.Notes != "" {
		l.Notes = in.Notes
	}
	if in.InterestedProducts != nil {
		l.InterestedProducts = in.InterestedProducts
	}

	assigned := false
	if in.AssignedTo != nil && in.AssignedTo.String() != l.AssignedTo.String() {
		if !in.AssignedTo.IsNil() {
			if err := svc.checkAssignee(ctx, *in.AssignedTo); err != nil {
				return nil, err
			}
		}
		l.AssignedTo = *in.AssignedTo
		assigned = !in.AssignedTo.IsNil()
	}

	if err := svc.store.UpdateLead(ctx, l); err != nil {
		return nil, err
	}

	name := event.LeadUpdated
	if assigned {
		name = event.LeadAssigned
	}
	svc.emit(ctx, name, *l, actor)
	return l, nil
}

// AssignLead assigns a lead to a user and emits lead.assigned.
func (svc *Service) AssignLead(ctx context.Context, leadID, userID id.ID, actor event.Actor) (*Lead, error) {
	return svc.UpdateLead(ctx, leadID, LeadInput{AssignedTo: &userID}, actor)
}

// DeleteLead removes a lead and emits lead.deleted with the final snapshot.
func (svc *Service) DeleteLead(ctx context.Context, leadID id.ID, actor event.Actor) error {
	l, err := svc.store.GetLead(ctx, leadID)
	if err != nil {
		return err
	}

	if err := svc.store.DeleteLead(ctx, leadID); err != nil {
		return err
	}

	svc.emit(ctx, event.LeadDeleted, *l, actor)
	return nil
}

// GetLead returns a lead by ID. No event is emitted.
func (svc *Service) GetLead(ctx context.Context, leadID id.ID) (*Lead, error) {
	return svc.store.GetLead(ctx, leadID)
}

// ListLeads returns leads matching the filter. No event is emitted.
func (svc *Service) ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error) {
	return svc.store.ListLeads(ctx, filter)
}

// checkAssignee verifies that the assignee references an existing user.
func (svc *Service) checkAssignee(ctx context.Context, userID id.ID) error {
	if _, err := svc.store.GetUser(ctx, userID); err != nil {
		return &ValidationError{Field: "assigned_to", Message: "user " + userID.String() + " does not exist"}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Interactions
// ──────────────────────────────────────────────────

// InteractionInput is the creation/update payload for interactions.
type InteractionInput struct {
	LeadID id.ID  `json:"lead_id"`
	Type   string `json:"type"`
	Text   string `json:"text"`
}

// CreateInteraction records a lead interaction and emits interaction.created.
// The referenced lead must exist.
func (svc *Service) CreateInteraction(ctx context.Context, in InteractionInput, actor event.Actor) (*Interaction, error) {
	if in.Type == "" {
		return nil, &ValidationError{Field: "type", Message: "required"}
	}
	if in.Text == "" {
		return nil, &ValidationError{Field: "text", Message: "required"}
	}
	if _, err := svc.store.GetLead(ctx, in.LeadID); err != nil {
		return nil, err
	}

	rec := &Interaction{
		Entity: entity.New(),
		ID:     id.NewInteractionID(),
		LeadID: in.LeadID,
		Type:   in.Type,
		Text:   in.Text,
	}
	if actor.ID != "" {
		if userID, err := id.ParseUserID(actor.ID); err == nil {
			rec.CreatedBy = userID
		}
	}

	if err := svc.store.CreateInteraction(ctx, rec); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.InteractionCreated, *rec, actor)
	return rec, nil
}

// UpdateInteraction modifies an interaction and emits interaction.updated.
func (svc *Service) UpdateInteraction(ctx context.Context, intID id.ID, in InteractionInput, actor event.Actor) (*Interaction, error) {
	rec, err := svc.store.GetInteraction(ctx, intID)
	if err != nil {
		return nil, err
	}

	if in.Type != "" {
		rec.Type = in.Type
	}
	if in.Text != "" {
		rec.Text = in.Text
	}

	if err := svc.store.UpdateInteraction(ctx, rec); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.InteractionUpdated, *rec, actor)
	return rec, nil
}

// DeleteInteraction removes an interaction and emits interaction.deleted.
func (svc *Service) DeleteInteraction(ctx context.Context, intID id.ID, actor event.Actor) error {
	rec, err := svc.store.GetInteraction(ctx, intID)
	if err != nil {
		return err
	}

	if err := svc.store.DeleteInteraction(ctx, intID); err != nil {
		return err
	}

	svc.emit(ctx, event.InteractionDeleted, *rec, actor)
	return nil
}

// ListInteractions returns interactions for a lead. No event is emitted.
func (svc *Service) ListInteractions(ctx context.Context, leadID id.ID) ([]*Interaction, error) {
	return svc.store.ListInteractions(ctx, leadID)
}

// ──────────────────────────────────────────────────
// Products
// ──────────────────────────────────────────────────

// ProductInput is the creation/update payload for products.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	Active      *bool    `json:"active"`
}

// CreateProduct creates a product and emits product.created.
func (svc *Service) CreateProduct(ctx context.Context, in ProductInput, actor event.Actor) (*Product, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	p := &Product{
		Entity:      entity.New(),
		ID:          id.NewProductID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Active:      true,
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	if err := svc.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.ProductCreated, *p, actor)
	return p, nil
}

// UpdateProduct modifies a product and emits product.updated.
func (svc *Service) UpdateProduct(ctx context.Context, prodID id.ID, in ProductInput, actor event.Actor) (*Product, error) {
	p, err := svc.store.GetProduct(ctx, prodID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	if err := svc.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.ProductUpdated, *p, actor)
	return p, nil
}

// DeleteProduct removes a product and emits product.deleted.
func (svc *Service) DeleteProduct(ctx context.Context, prodID id.ID, actor event.Actor) error {
	p, err := svc.store.GetProduct(ctx, prodID)
	if err != nil {
		return err
	}

	if err := svc.store.DeleteProduct(ctx, prodID); err != nil {
		return err
	}

	svc.emit(ctx, event.ProductDeleted, *p, actor)
	return nil
}

// ListProducts returns all products. No event is emitted.
func (svc *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	return svc.store.ListProducts(ctx)
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

// UserInput is the creation/update payload for users.
type UserInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

// CreateUser creates a user and emits user.created.
func (svc *Service) CreateUser(ctx context.Context, in UserInput, actor event.Actor) (*User, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if in.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "required"}
	}

	u := &User{
		Entity: entity.New(),
		ID:     id.NewUserID(),
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
		Active: true,
	}
	if in.Active != nil {
		u.Active = *in.Active
	}

	if err := svc.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.UserCreated, *u, actor)
	return u, nil
}

// UpdateUser modifies a user and emits user.updated.
func (svc *Service) UpdateUser(ctx context.Context, userID id.ID, in UserInput, actor event.Actor) (*User, error) {
	u, err := svc.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Role != "" {
		u.Role = in.Role
	}
	if in.Active != nil {
		u.Active = *in.Active
	}

	if err := svc.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	svc.emit(ctx, event.UserUpdated, *u, actor)
	return u, nil
}

// ListUsers returns all users. No event is emitted.
func (svc *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return svc.store.ListUsers(ctx)
}
