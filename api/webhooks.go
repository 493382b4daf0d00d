package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/webhook"
)

// webhookResponse adds the signing secret to a freshly created or rotated
// webhook. The secret is never included in reads or lists.
type webhookResponse struct {
	*webhook.Webhook
	Secret string `json:"secret,omitempty"`
}

func (h *Handler) createWebhook(w http.ResponseWriter, r *http.Request) {
	var in webhook.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	wh, err := h.webhookSvc.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// The secret is shown exactly once, on creation.
	writeJSON(w, http.StatusCreated, webhookResponse{Webhook: wh, Secret: wh.Secret})
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	opts := webhook.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	switch queryParam(r, "active") {
	case "true":
		t := true
		opts.Active = &t
	case "false":
		f := false
		opts.Active = &f
	}

	whs, err := h.webhookSvc.List(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if whs == nil {
		whs = []*webhook.Webhook{}
	}
	writeJSON(w, http.StatusOK, whs)
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	wh, err := h.webhookSvc.Get(r.Context(), whID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) updateWebhook(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	var in webhook.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	wh, err := h.webhookSvc.Update(r.Context(), whID, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	if err := h.webhookSvc.Delete(r.Context(), whID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setWebhookActive(w, r, true)
}

func (h *Handler) deactivateWebhook(w http.ResponseWriter, r *http.Request) {
	h.setWebhookActive(w, r, false)
}

func (h *Handler) setWebhookActive(w http.ResponseWriter, r *http.Request, active bool) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	if err := h.webhookSvc.SetActive(r.Context(), whID, active); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	secret, err := h.webhookSvc.RotateSecret(r.Context(), whID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

// testWebhook fires a synchronous test delivery at the webhook's URL,
// bypassing event matching and the queue, and reports the outcome.
func (h *Handler) testWebhook(w http.ResponseWriter, r *http.Request) {
	whID, ok := h.pathWebhookID(w, r)
	if !ok {
		return
	}

	wh, err := h.webhookSvc.Get(r.Context(), whID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	body, err := json.Marshal(map[string]any{
		"test":      true,
		"timestamp": now.Format(time.RFC3339),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := h.sender.Send(r.Context(), wh, "webhook.test", id.Nil, body)
	h.webhookSvc.MarkTriggered(r.Context(), whID, now)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     result.OK(),
		"status_code": result.StatusCode,
		"error":       result.Error,
		"latency_ms":  result.LatencyMs,
	})
}

// pathWebhookID parses the {id} path segment; on failure it writes a 400
// and returns ok=false.
func (h *Handler) pathWebhookID(w http.ResponseWriter, r *http.Request) (id.ID, bool) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook id")
		return id.Nil, false
	}
	return whID, true
}
