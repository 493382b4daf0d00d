package crm

import (
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
)

// Interaction types.
const (
	InteractionCall    = "call"
	InteractionEmail   = "email"
	InteractionMeeting = "meeting"
	InteractionNote    = "note"
)

// Interaction is a touchpoint with a lead: a call, email, meeting, or note.
type Interaction struct {
	entity.Entity

	// ID is the unique TypeID for this interaction.
	ID id.ID `json:"id"`

	// LeadID references the lead this interaction belongs to.
	LeadID id.ID `json:"lead_id"`

	// Type is the interaction kind (call, email, meeting, note).
	Type string `json:"type"`

	// Text is the interaction body.
	Text string `json:"text"`

	// CreatedBy references the user who recorded the interaction, if known.
	CreatedBy id.ID `json:"created_by,omitempty"`
}
