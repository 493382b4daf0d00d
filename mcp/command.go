// Package mcp exposes the CRM mutation path to AI agents over a WebSocket
// control channel. Agents send one JSON command per message and receive one
// response per command; a bad command is answered, never disconnected.
package mcp

import "encoding/json"

// Command names accepted on the control channel. The set is closed:
// anything else gets an error response.
const (
	CommandCreateLead     = "create_lead"
	CommandGetLeads       = "get_leads"
	CommandUpdateLead     = "update_lead"
	CommandAddInteraction = "add_interaction"
	CommandGetAnalytics   = "get_analytics"
	CommandManageProducts = "manage_products"
)

// Request is one inbound control message.
type Request struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response is the reply to one Request.
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CreateLeadArgs are the arguments for create_lead.
type CreateLeadArgs struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone,omitempty"`
	Company            string   `json:"company,omitempty"`
	Status             string   `json:"status,omitempty"`
	Priority           string   `json:"priority,omitempty"`
	DealValue          *float64 `json:"deal_value,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	InterestedProducts []string `json:"interested_products,omitempty"`
	AssignedTo         string   `json:"assigned_to,omitempty"`
}

// GetLeadsArgs are the arguments for get_leads. All fields are optional
// filters.
type GetLeadsArgs struct {
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Company    string `json:"company,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// UpdateLeadArgs are the arguments for update_lead. Zero-valued fields are
// left unchanged; assigned_to set to the empty string clears the assignee.
type UpdateLeadArgs struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name,omitempty"`
	Email              string   `json:"email,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	Company            string   `json:"company,omitempty"`
	Status             string   `json:"status,omitempty"`
	Priority           string   `json:"priority,omitempty"`
	DealValue          *float64 `json:"deal_value,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	InterestedProducts []string `json:"interested_products,omitempty"`
	AssignedTo         *string  `json:"assigned_to,omitempty"`
}

// AddInteractionArgs are the arguments for add_interaction.
type AddInteractionArgs struct {
	LeadID string `json:"lead_id"`
	Type   string `json:"type"`
	Text   string `json:"text"`
}

// Product management actions for manage_products.
const (
	ProductActionCreate = "create"
	ProductActionUpdate = "update"
	ProductActionDelete = "delete"
)

// ManageProductsArgs are the arguments for manage_products.
type ManageProductsArgs struct {
	Action      string   `json:"action"`
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}
