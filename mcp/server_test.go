package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/mcp"
	"github.com/leadwire/leadwire/store/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *crm.Service) {
	t.Helper()

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	svc := crm.NewService(store, nil, nil)

	srv, err := mcp.NewServer(mcp.Config{
		CRM:            svc,
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, svc
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/mcp"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, command string, args any) mcp.Response {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := map[string]any{"command": command}
	if args != nil {
		req["args"] = args
	}
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp mcp.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func resultMap(t *testing.T, resp mcp.Response) map[string]any {
	t.Helper()
	m, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", resp.Result)
	}
	return m
}

func TestCreateAndGetLeads(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"company":  "Analytical Engines",
		"priority": "high",
	})
	if !resp.OK {
		t.Fatalf("create_lead failed: %s", resp.Error)
	}
	lead := resultMap(t, resp)
	if lead["name"] != "Ada Lovelace" {
		t.Errorf("name = %v", lead["name"])
	}
	if lead["status"] != "new" {
		t.Errorf("status = %v, want new", lead["status"])
	}

	resp = roundTrip(t, conn, mcp.CommandGetLeads, map[string]any{"priority": "high"})
	if !resp.OK {
		t.Fatalf("get_leads failed: %s", resp.Error)
	}
	leads, ok := resp.Result.([]any)
	if !ok {
		t.Fatalf("result is %T, want array", resp.Result)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}

	resp = roundTrip(t, conn, mcp.CommandGetLeads, map[string]any{"priority": "low"})
	if !resp.OK {
		t.Fatalf("get_leads failed: %s", resp.Error)
	}
	if leads, _ := resp.Result.([]any); len(leads) != 0 {
		t.Fatalf("got %d leads, want 0", len(leads))
	}
}

func TestUpdateLead(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{
		"name":  "Grace Hopper",
		"email": "grace@example.com",
	})
	if !resp.OK {
		t.Fatalf("create_lead failed: %s", resp.Error)
	}
	leadID := resultMap(t, resp)["id"].(string)

	resp = roundTrip(t, conn, mcp.CommandUpdateLead, map[string]any{
		"id":     leadID,
		"status": "qualified",
	})
	if !resp.OK {
		t.Fatalf("update_lead failed: %s", resp.Error)
	}
	if got := resultMap(t, resp)["status"]; got != "qualified" {
		t.Errorf("status = %v, want qualified", got)
	}
}

func TestAddInteraction(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{
		"name":  "Lin Scott",
		"email": "lin@example.com",
	})
	if !resp.OK {
		t.Fatalf("create_lead failed: %s", resp.Error)
	}
	leadID := resultMap(t, resp)["id"].(string)

	resp = roundTrip(t, conn, mcp.CommandAddInteraction, map[string]any{
		"lead_id": leadID,
		"type":    "call",
		"text":    "Discussed pricing tiers.",
	})
	if !resp.OK {
		t.Fatalf("add_interaction failed: %s", resp.Error)
	}
	if got := resultMap(t, resp)["type"]; got != "call" {
		t.Errorf("type = %v, want call", got)
	}
}

func TestManageProducts(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, mcp.CommandManageProducts, map[string]any{
		"action": "create",
		"name":   "Starter Plan",
		"price":  49.0,
	})
	if !resp.OK {
		t.Fatalf("create failed: %s", resp.Error)
	}
	prodID := resultMap(t, resp)["id"].(string)

	resp = roundTrip(t, conn, mcp.CommandManageProducts, map[string]any{
		"action": "update",
		"id":     prodID,
		"name":   "Starter Plan v2",
	})
	if !resp.OK {
		t.Fatalf("update failed: %s", resp.Error)
	}
	if got := resultMap(t, resp)["name"]; got != "Starter Plan v2" {
		t.Errorf("name = %v", got)
	}

	resp = roundTrip(t, conn, mcp.CommandManageProducts, map[string]any{
		"action": "delete",
		"id":     prodID,
	})
	if !resp.OK {
		t.Fatalf("delete failed: %s", resp.Error)
	}
	if got := resultMap(t, resp)["deleted"]; got != true {
		t.Errorf("deleted = %v, want true", got)
	}
}

func TestGetAnalytics(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{
		"name":       "Sam Reed",
		"email":      "sam@example.com",
		"deal_value": 1200.0,
	})
	if !resp.OK {
		t.Fatalf("create_lead failed: %s", resp.Error)
	}

	resp = roundTrip(t, conn, mcp.CommandGetAnalytics, nil)
	if !resp.OK {
		t.Fatalf("get_analytics failed: %s", resp.Error)
	}
	stats := resultMap(t, resp)
	if got := stats["total_leads"]; got != float64(1) {
		t.Errorf("total_leads = %v, want 1", got)
	}
}

func TestBadCommandsKeepConnectionOpen(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	resp := roundTrip(t, conn, "drop_tables", nil)
	if resp.OK {
		t.Fatal("unknown command succeeded")
	}
	if !strings.Contains(resp.Error, "unknown command") {
		t.Errorf("error = %q", resp.Error)
	}

	// Missing required args fail schema validation.
	resp = roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{"name": "No Email"})
	if resp.OK {
		t.Fatal("create_lead without email succeeded")
	}

	// Unknown fields are rejected.
	resp = roundTrip(t, conn, mcp.CommandGetLeads, map[string]any{"bogus": 1})
	if resp.OK {
		t.Fatal("get_leads with unknown field succeeded")
	}

	// The connection survives all of the above.
	resp = roundTrip(t, conn, mcp.CommandCreateLead, map[string]any{
		"name":  "Still Here",
		"email": "still@example.com",
	})
	if !resp.OK {
		t.Fatalf("create_lead after errors failed: %s", resp.Error)
	}
}

func TestMalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp mcp.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK {
		t.Fatal("malformed request succeeded")
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	store := memory.New()
	t.Cleanup(func() { store.Close() })

	srv, err := mcp.NewServer(mcp.Config{
		CRM: crm.NewService(store, nil, nil),
		Authenticator: func(r *http.Request) (event.Actor, error) {
			return event.Actor{}, errContext
		},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/mcp"
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		conn.CloseNow()
		t.Fatal("dial succeeded, want rejection")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

var errContext = context.Canceled
