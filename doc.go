// Package leadwire provides an embeddable webhook delivery and CRM event
// fan-out engine for Go.
//
// Leadwire is a library, not a service. Import it into your application to
// get a CRM mutation path that fans every change out to subscribed webhooks,
// with signed deliveries, retries, a dead letter queue, and an agent-facing
// WebSocket control channel.
//
// Key features:
//   - Closed domain event vocabulary (lead.*, interaction.*, product.*, user.*)
//   - Webhook registry with glob event patterns and per-webhook rate limits
//   - HMAC-SHA256 signed deliveries, payloads enriched at build time
//   - Exponential backoff retries with dead letter queue and replay
//   - Redis and in-memory store backends
//   - MCP control channel exposing the same mutations as the REST API
//
// Quick start:
//
//	hub, err := leadwire.New(
//	    leadwire.WithStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hub.Start(ctx)
//	defer hub.Stop(ctx)
//
//	hub.CRM().CreateLead(ctx, crm.LeadInput{
//	    Name:  "Ada Lovelace",
//	    Email: "ada@example.com",
//	}, event.System())
package leadwire
