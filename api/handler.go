// Package api provides the admin HTTP API: webhook management, delivery
// history, DLQ operations, and the lead endpoints mirrored by the MCP
// control channel.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/store"
	"github.com/leadwire/leadwire/webhook"
)

// Handler is the root HTTP handler for the admin API.
type Handler struct {
	store      store.Store
	webhookSvc *webhook.Service
	dlqSvc     *dlq.Service
	crmSvc     *crm.Service
	sender     *delivery.Sender
	logger     *slog.Logger
	mux        *http.ServeMux
}

// NewHandler creates a new admin API handler.
func NewHandler(
	s store.Store,
	whSvc *webhook.Service,
	dlqSvc *dlq.Service,
	crmSvc *crm.Service,
	sender *delivery.Sender,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		store:      s,
		webhookSvc: whSvc,
		dlqSvc:     dlqSvc,
		crmSvc:     crmSvc,
		sender:     sender,
		logger:     logger,
		mux:        http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Webhooks
	h.mux.HandleFunc("POST /webhooks", h.createWebhook)
	h.mux.HandleFunc("GET /webhooks", h.listWebhooks)
	h.mux.HandleFunc("GET /webhooks/{id}", h.getWebhook)
	h.mux.HandleFunc("PUT /webhooks/{id}", h.updateWebhook)
	h.mux.HandleFunc("DELETE /webhooks/{id}", h.deleteWebhook)
	h.mux.HandleFunc("PATCH /webhooks/{id}/activate", h.activateWebhook)
	h.mux.HandleFunc("PATCH /webhooks/{id}/deactivate", h.deactivateWebhook)
	h.mux.HandleFunc("POST /webhooks/{id}/rotate-secret", h.rotateSecret)
	h.mux.HandleFunc("POST /webhooks/{id}/test", h.testWebhook)

	// Deliveries
	h.mux.HandleFunc("GET /webhooks/{id}/deliveries", h.listDeliveries)

	// DLQ
	h.mux.HandleFunc("GET /dlq", h.listDLQ)
	h.mux.HandleFunc("POST /dlq/{id}/replay", h.replayDLQ)
	h.mux.HandleFunc("POST /dlq/replay", h.replayBulkDLQ)

	// Stats
	h.mux.HandleFunc("GET /stats", h.getStats)

	// Leads (same mutations the MCP channel exposes)
	h.mux.HandleFunc("POST /leads", h.createLead)
	h.mux.HandleFunc("GET /leads", h.listLeads)
	h.mux.HandleFunc("PUT /leads/{id}", h.updateLead)
	h.mux.HandleFunc("DELETE /leads/{id}", h.deleteLead)
	h.mux.HandleFunc("POST /leads/{id}/interactions", h.createInteraction)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// actorFromRequest resolves the acting principal from request headers.
// Unattended callers fall back to the system actor.
func actorFromRequest(r *http.Request) event.Actor {
	name := r.Header.Get("X-Actor-Name")
	if name == "" {
		return event.System()
	}
	return event.Actor{
		ID:    r.Header.Get("X-Actor-ID"),
		Name:  name,
		Email: r.Header.Get("X-Actor-Email"),
		Role:  r.Header.Get("X-Actor-Role"),
	}
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var whErr *webhook.ValidationError
	var crmErr *crm.ValidationError
	switch {
	case errors.As(err, &whErr), errors.As(err, &crmErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("api request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultVal
		}
		n = n*10 + int(c-'0')
	}
	return n
}
