package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Argument schemas, one per command. Arguments are validated against the
// schema before the typed decode so agents get structural errors up front.
var commandSchemas = map[string]map[string]any{
	CommandCreateLead: {
		"type":                 "object",
		"required":             []any{"name", "email"},
		"additionalProperties": false,
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"email":    map[string]any{"type": "string", "minLength": 3},
			"phone":    map[string]any{"type": "string"},
			"company":  map[string]any{"type": "string"},
			"status":   map[string]any{"type": "string"},
			"priority": map[string]any{"type": "string"},
			"deal_value": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
			"notes":               map[string]any{"type": "string"},
			"interested_products": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"assigned_to":         map[string]any{"type": "string"},
		},
	},
	CommandGetLeads: {
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"status":      map[string]any{"type": "string"},
			"priority":    map[string]any{"type": "string"},
			"assigned_to": map[string]any{"type": "string"},
			"company":     map[string]any{"type": "string"},
			"offset":      map[string]any{"type": "integer", "minimum": 0},
			"limit":       map[string]any{"type": "integer", "minimum": 0},
		},
	},
	CommandUpdateLead: {
		"type":                 "object",
		"required":             []any{"id"},
		"additionalProperties": false,
		"properties": map[string]any{
			"id":       map[string]any{"type": "string", "minLength": 1},
			"name":     map[string]any{"type": "string"},
			"email":    map[string]any{"type": "string"},
			"phone":    map[string]any{"type": "string"},
			"company":  map[string]any{"type": "string"},
			"status":   map[string]any{"type": "string"},
			"priority": map[string]any{"type": "string"},
			"deal_value": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
			"notes":               map[string]any{"type": "string"},
			"interested_products": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"assigned_to":         map[string]any{"type": "string"},
		},
	},
	CommandAddInteraction: {
		"type":                 "object",
		"required":             []any{"lead_id", "type", "text"},
		"additionalProperties": false,
		"properties": map[string]any{
			"lead_id": map[string]any{"type": "string", "minLength": 1},
			"type":    map[string]any{"type": "string", "enum": []any{"call", "email", "meeting", "note"}},
			"text":    map[string]any{"type": "string", "minLength": 1},
		},
	},
	CommandGetAnalytics: {
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]any{},
	},
	CommandManageProducts: {
		"type":                 "object",
		"required":             []any{"action"},
		"additionalProperties": false,
		"properties": map[string]any{
			"action":      map[string]any{"type": "string", "enum": []any{"create", "update", "delete"}},
			"id":          map[string]any{"type": "string"},
			"name":        map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"price":       map[string]any{"type": "number", "minimum": 0},
			"category":    map[string]any{"type": "string"},
			"active":      map[string]any{"type": "boolean"},
		},
	},
}

// compileSchemas compiles every command schema once at server construction.
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compiled := make(map[string]*jsonschema.Schema, len(commandSchemas))
	for cmd, doc := range commandSchemas {
		// Round-trip through JSON so the compiler sees plain decoded values.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", cmd, err)
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", cmd, err)
		}

		url := "leadwire://mcp/" + cmd
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, decoded); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", cmd, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", cmd, err)
		}
		compiled[cmd] = schema
	}
	return compiled, nil
}

// validateArgs checks raw args against the command's schema. Empty args are
// validated as an empty object.
func validateArgs(schemas map[string]*jsonschema.Schema, cmd string, raw json.RawMessage) error {
	schema, ok := schemas[cmd]
	if !ok {
		return nil
	}

	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("args must be a JSON object: %w", err)
	}
	return schema.Validate(doc)
}
