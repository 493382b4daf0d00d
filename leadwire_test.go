package leadwire_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leadwire/leadwire"
	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/signature"
	"github.com/leadwire/leadwire/store/memory"
	"github.com/leadwire/leadwire/webhook"
)

func newHub(t *testing.T, opts ...leadwire.Option) *leadwire.Hub {
	t.Helper()

	store := memory.New()
	t.Cleanup(func() { store.Close() })

	opts = append([]leadwire.Option{
		leadwire.WithStore(store),
		leadwire.WithPollInterval(10 * time.Millisecond),
		leadwire.WithRequestTimeout(2 * time.Second),
	}, opts...)

	hub, err := leadwire.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return hub
}

func registerWebhook(t *testing.T, hub *leadwire.Hub, url string, events ...string) *webhook.Webhook {
	t.Helper()
	wh, err := hub.Webhooks().Create(t.Context(), webhook.Input{
		Name:   "test-" + events[0],
		URL:    url,
		Events: events,
	})
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	return wh
}

func createLead(t *testing.T, hub *leadwire.Hub, name, email string) *crm.Lead {
	t.Helper()
	lead, err := hub.CRM().CreateLead(t.Context(), crm.LeadInput{
		Name:  name,
		Email: email,
	}, event.System())
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return lead
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := leadwire.New(); err != leadwire.ErrNoStore {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}

// Only active webhooks whose patterns match the event get a delivery.
func TestEmitMatchesSubscriptions(t *testing.T) {
	hub := newHub(t)
	ctx := t.Context()

	leadHook := registerWebhook(t, hub, "https://example.com/a", "lead.*")
	userHook := registerWebhook(t, hub, "https://example.com/b", "user.*")
	inactive := registerWebhook(t, hub, "https://example.com/c", "*")
	if err := hub.Webhooks().SetActive(ctx, inactive.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	createLead(t, hub, "Ada Lovelace", "ada@example.com")

	for _, tc := range []struct {
		wh   *webhook.Webhook
		want int
	}{
		{leadHook, 1},
		{userHook, 0},
		{inactive, 0},
	} {
		ds, err := hub.Store().ListByWebhook(ctx, tc.wh.ID, delivery.ListOpts{})
		if err != nil {
			t.Fatalf("list deliveries: %v", err)
		}
		if len(ds) != tc.want {
			t.Errorf("webhook %s got %d deliveries, want %d", tc.wh.Name, len(ds), tc.want)
		}
	}
}

// A delivery is signed with the webhook secret and carries the event headers.
func TestDeliverySigned(t *testing.T) {
	hub := newHub(t)

	type received struct {
		body    []byte
		headers http.Header
	}
	got := make(chan received, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, headers: r.Header.Clone()}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	wh := registerWebhook(t, hub, receiver.URL, "lead.created")

	hub.Start(t.Context())
	defer hub.Stop(context.Background())

	createLead(t, hub, "Grace Hopper", "grace@example.com")

	select {
	case r := <-got:
		if e := r.headers.Get("X-Webhook-Event"); e != "lead.created" {
			t.Errorf("X-Webhook-Event = %q", e)
		}
		if r.headers.Get("X-Webhook-Delivery-ID") == "" {
			t.Error("missing X-Webhook-Delivery-ID")
		}
		want := signature.Sign(r.body, wh.Secret)
		if sig := r.headers.Get(signature.Header); sig != want {
			t.Errorf("signature = %q, want %q", sig, want)
		}

		var payload map[string]any
		if err := json.Unmarshal(r.body, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["event"] != "lead.created" {
			t.Errorf("payload event = %v", payload["event"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("delivery never arrived")
	}
}

// One webhook failing does not keep another from being attempted.
func TestDeliveryIsolation(t *testing.T) {
	hub := newHub(t)

	okHit := make(chan struct{}, 1)
	okReceiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case okHit <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer okReceiver.Close()

	badReceiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badReceiver.Close()

	okHook := registerWebhook(t, hub, okReceiver.URL, "lead.*")
	registerWebhook(t, hub, badReceiver.URL, "lead.*")

	hub.Start(t.Context())
	defer hub.Stop(context.Background())

	createLead(t, hub, "Joan Clarke", "joan@example.com")

	select {
	case <-okHit:
	case <-time.After(3 * time.Second):
		t.Fatal("healthy webhook never attempted")
	}

	// The healthy webhook ends up delivered regardless of the failing one.
	deadline := time.Now().Add(3 * time.Second)
	for {
		ds, err := hub.Store().ListByWebhook(t.Context(), okHook.ID, delivery.ListOpts{})
		if err != nil {
			t.Fatalf("list deliveries: %v", err)
		}
		if len(ds) == 1 && ds[0].State == delivery.StateDelivered {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("healthy delivery not delivered: %+v", ds)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Mutations return without waiting on webhook receivers.
func TestMutationNeverBlocksOnReceivers(t *testing.T) {
	hub := newHub(t)

	// Unroutable address: any connection attempt would hang or fail slowly.
	registerWebhook(t, hub, "http://10.255.255.1:9", "*")

	start := time.Now()
	createLead(t, hub, "Sam Reed", "sam@example.com")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("CreateLead took %v with unreachable webhook", elapsed)
	}
}

// Lead payloads join product names at build time; vanished products are omitted.
func TestPayloadProductNames(t *testing.T) {
	hub := newHub(t)
	ctx := t.Context()

	priceA := 10.0
	prodA, err := hub.CRM().CreateProduct(ctx, crm.ProductInput{Name: "Starter", Price: &priceA}, event.System())
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	prodB, err := hub.CRM().CreateProduct(ctx, crm.ProductInput{Name: "Enterprise", Price: &priceA}, event.System())
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := hub.CRM().DeleteProduct(ctx, prodB.ID, event.System()); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	wh := registerWebhook(t, hub, "https://example.com/hook", "lead.created")

	_, err = hub.CRM().CreateLead(ctx, crm.LeadInput{
		Name:               "Lin Scott",
		Email:              "lin@example.com",
		InterestedProducts: []id.ID{prodA.ID, prodB.ID},
	}, event.System())
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	ds, err := hub.Store().ListByWebhook(ctx, wh.ID, delivery.ListOpts{})
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(ds))
	}

	var payload struct {
		Lead struct {
			InterestedProductNames []string `json:"interestedProductNames"`
		} `json:"lead"`
	}
	if err := json.Unmarshal(ds[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got := payload.Lead.InterestedProductNames; len(got) != 1 || got[0] != "Starter" {
		t.Errorf("interestedProductNames = %v, want [Starter]", got)
	}
}

// The same mutation produces the same event payload no matter which surface
// invoked it: Emit sits behind crm.Service, shared by REST and MCP.
func TestSurfaceParity(t *testing.T) {
	hub := newHub(t)
	ctx := t.Context()

	wh := registerWebhook(t, hub, "https://example.com/hook", "lead.updated")

	lead := createLead(t, hub, "Mary Jackson", "mary@example.com")

	// Same UpdateLead call the MCP update_lead command and PUT /leads/{id}
	// both dispatch to.
	if _, err := hub.CRM().UpdateLead(ctx, lead.ID, crm.LeadInput{Status: "qualified"}, event.System()); err != nil {
		t.Fatalf("update lead: %v", err)
	}

	ds, err := hub.Store().ListByWebhook(ctx, wh.ID, delivery.ListOpts{})
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(ds))
	}

	var payload map[string]any
	if err := json.Unmarshal(ds[0].Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	for _, key := range []string{"event", "timestamp", "lead", "actor"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
	if payload["event"] != "lead.updated" {
		t.Errorf("event = %v, want lead.updated", payload["event"])
	}
}
