package payload_test

import (
	"testing"
	"time"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/payload"
	"github.com/leadwire/leadwire/store/memory"
)

func newBuilder(t *testing.T) (*payload.Builder, *memory.Store) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })
	return payload.NewBuilder(store), store
}

func TestBuildLeadEvent(t *testing.T) {
	b, store := newBuilder(t)
	ctx := t.Context()

	prod := &crm.Product{
		Entity: entity.New(),
		ID:     id.NewProductID(),
		Name:   "Starter",
		Active: true,
	}
	if err := store.CreateProduct(ctx, prod); err != nil {
		t.Fatalf("create product: %v", err)
	}

	lead := crm.Lead{
		Entity:             entity.New(),
		ID:                 id.NewLeadID(),
		Name:               "Ada Lovelace",
		Email:              "ada@example.com",
		Status:             crm.StatusNew,
		Priority:           crm.PriorityHigh,
		DealValue:          1200,
		InterestedProducts: []id.ID{prod.ID, id.NewProductID()},
	}

	out, err := b.Build(ctx, event.Event{
		Name:   event.LeadCreated,
		Entity: lead,
		Actor:  event.Actor{Name: "Rep", Email: "rep@example.com", Role: "sales"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	evt, ok := out.(payload.LeadEvent)
	if !ok {
		t.Fatalf("payload type = %T", out)
	}
	if evt.Event != "lead.created" {
		t.Errorf("event = %q", evt.Event)
	}
	if _, err := time.Parse(time.RFC3339, evt.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC 3339: %v", evt.Timestamp, err)
	}
	if evt.Lead.Value != 1200 {
		t.Errorf("value = %v", evt.Lead.Value)
	}
	// Only the existing product's name is joined; the vanished one is omitted.
	if len(evt.Lead.InterestedProductNames) != 1 || evt.Lead.InterestedProductNames[0] != "Starter" {
		t.Errorf("interestedProductNames = %v, want [Starter]", evt.Lead.InterestedProductNames)
	}
	if evt.Actor.Email == nil || *evt.Actor.Email != "rep@example.com" {
		t.Errorf("actor email = %v", evt.Actor.Email)
	}
}

func TestBuildInteractionEventJoinsLead(t *testing.T) {
	b, store := newBuilder(t)
	ctx := t.Context()

	lead := &crm.Lead{
		Entity: entity.New(),
		ID:     id.NewLeadID(),
		Name:   "Grace Hopper",
		Email:  "grace@example.com",
		Status: crm.StatusContacted,
	}
	if err := store.CreateLead(ctx, lead); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	interaction := crm.Interaction{
		Entity: entity.New(),
		ID:     id.NewInteractionID(),
		LeadID: lead.ID,
		Type:   "call",
		Text:   "Discussed migration plan.",
	}

	out, err := b.Build(ctx, event.Event{
		Name:   event.InteractionCreated,
		Entity: interaction,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	evt, ok := out.(payload.InteractionEvent)
	if !ok {
		t.Fatalf("payload type = %T", out)
	}
	if evt.Interaction.Type != "call" {
		t.Errorf("type = %q", evt.Interaction.Type)
	}
	if evt.Lead == nil || evt.Lead.Name != "Grace Hopper" {
		t.Errorf("joined lead = %+v", evt.Lead)
	}
}

func TestBuildInteractionEventVanishedLead(t *testing.T) {
	b, _ := newBuilder(t)

	out, err := b.Build(t.Context(), event.Event{
		Name: event.InteractionDeleted,
		Entity: crm.Interaction{
			Entity: entity.New(),
			ID:     id.NewInteractionID(),
			LeadID: id.NewLeadID(),
			Type:   "note",
			Text:   "orphaned",
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if evt := out.(payload.InteractionEvent); evt.Lead != nil {
		t.Errorf("lead = %+v, want nil for vanished lead", evt.Lead)
	}
}

func TestBuildSystemActor(t *testing.T) {
	b, _ := newBuilder(t)

	out, err := b.Build(t.Context(), event.Event{
		Name: event.ProductCreated,
		Entity: crm.Product{
			Entity: entity.New(),
			ID:     id.NewProductID(),
			Name:   "Pro Plan",
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	evt := out.(payload.ProductEvent)
	if evt.Actor.Name != "system" || evt.Actor.Role != "system" {
		t.Errorf("actor = %+v, want system sentinel", evt.Actor)
	}
	if evt.Actor.Email != nil {
		t.Errorf("system actor email = %v, want null", *evt.Actor.Email)
	}
}

func TestBuildUserEvent(t *testing.T) {
	b, _ := newBuilder(t)

	out, err := b.Build(t.Context(), event.Event{
		Name: event.UserCreated,
		Entity: crm.User{
			Entity: entity.New(),
			ID:     id.NewUserID(),
			Name:   "Rep",
			Email:  "rep@example.com",
			Role:   "sales",
			Active: true,
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if evt := out.(payload.UserEvent); evt.User.Role != "sales" {
		t.Errorf("user = %+v", evt.User)
	}
}

func TestBuildUnknownSnapshot(t *testing.T) {
	b, _ := newBuilder(t)

	if _, err := b.Build(t.Context(), event.Event{
		Name:   event.LeadCreated,
		Entity: struct{}{},
	}); err == nil {
		t.Fatal("unknown snapshot type accepted")
	}
}
