package api

import (
	"net/http"

	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/webhook"
)

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	// 404 for unknown webhooks rather than an empty history.
	if _, err := h.webhookSvc.Get(r.Context(), whID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	opts := delivery.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if s := queryParam(r, "state"); s != "" {
		state := delivery.State(s)
		opts.State = &state
	}

	ds, err := h.store.ListByWebhook(r.Context(), whID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ds == nil {
		ds = []*delivery.Delivery{}
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) listDLQ(w http.ResponseWriter, r *http.Request) {
	opts := dlq.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if s := queryParam(r, "webhook_id"); s != "" {
		whID, err := id.ParseWebhookID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook id")
			return
		}
		opts.WebhookID = whID
	}
	if s := queryParam(r, "event"); s != "" {
		opts.Event = event.Name(s)
	}

	entries, err := h.dlqSvc.List(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*dlq.Entry{}
	}

	total, err := h.dlqSvc.Count(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

func (h *Handler) replayDLQ(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDLQID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dlq entry id")
		return
	}

	d, err := h.dlqSvc.Replay(r.Context(), entryID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, d)
}

func (h *Handler) replayBulkDLQ(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WebhookID string `json:"webhookId"`
		Event     string `json:"event"`
		Limit     int    `json:"limit"`
	}
	// An empty body replays everything.
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	opts := dlq.ListOpts{Limit: req.Limit, Event: event.Name(req.Event)}
	if req.WebhookID != "" {
		whID, err := id.ParseWebhookID(req.WebhookID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook id")
			return
		}
		opts.WebhookID = whID
	}

	ds, err := h.dlqSvc.ReplayAll(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"replayed": len(ds)})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	webhooks, err := h.webhookSvc.List(ctx, webhook.ListOpts{})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	active := 0
	for _, wh := range webhooks {
		if wh.Active {
			active++
		}
	}

	pending, err := h.store.CountPending(ctx)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dlqTotal, err := h.dlqSvc.Count(ctx, dlq.ListOpts{})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"webhooks":           len(webhooks),
		"active_webhooks":    active,
		"pending_deliveries": pending,
		"dlq_size":           dlqTotal,
	})
}
