// Package crm defines the CRM domain snapshots (leads, interactions,
// products, users), the record-store collaborator contract, and the mutation
// service that every caller (admin REST or MCP agent) goes through so that
// both surfaces emit identical domain events.
package crm

import (
	"time"

	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// Lead statuses recognized by the pipeline.
const (
	StatusNew         = "new"
	StatusContacted   = "contacted"
	StatusQualified   = "qualified"
	StatusProposal    = "proposal"
	StatusNegotiation = "negotiation"
	StatusWon         = "won"
	StatusLost        = "lost"
)

// Lead priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Lead is a sales lead for AI services.
type Lead struct {
	entity.Entity

	// ID is the unique TypeID for this lead.
	ID id.ID `json:"id"`

	// Name is the contact's full name.
	Name string `json:"name"`

	// Email is the contact email.
	Email string `json:"email"`

	// Phone is the contact phone number.
	Phone string `json:"phone,omitempty"`

	// Company is the contact's company name.
	Company string `json:"company,omitempty"`

	// Status is the pipeline stage.
	Status string `json:"status"`

	// Priority ranks the lead.
	Priority string `json:"priority"`

	// DealValue is the estimated deal value.
	DealValue float64 `json:"deal_value"`

	// FollowUpDate is the next scheduled follow-up, if any.
	FollowUpDate *time.Time `json:"follow_up_date,omitempty"`

	// Notes holds free-form notes.
	Notes string `json:"notes,omitempty"`

	// InterestedProducts references the products this lead is interested in.
	InterestedProducts []id.ID `json:"interested_products,omitempty"`

	// AssignedTo references the owning user. Nil means unassigned.
	// Must reference an existing user when set.
	AssignedTo id.ID `json:"assigned_to,omitempty"`
}

// Assigned reports whether the lead has an assignee.
func (l *Lead) Assigned() bool {
	return !l.AssignedTo.IsNil()
}

// LeadFilter narrows ListLeads results. Zero fields match everything.
type LeadFilter struct {
	Status     string
	Priority   string
	AssignedTo id.ID
	Company    string
	Offset     int
	Limit      int
}
