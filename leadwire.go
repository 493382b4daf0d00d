package leadwire

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/delivery"
	"github.com/leadwire/leadwire/dlq"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/observability"
	"github.com/leadwire/leadwire/payload"
	"github.com/leadwire/leadwire/ratelimit"
	"github.com/leadwire/leadwire/store"
	"github.com/leadwire/leadwire/webhook"
)

// Hub is the top-level leadwire instance. It owns the webhook registry, the
// CRM mutation path, payload assembly, the delivery engine, and the DLQ, all
// backed by a single store.
type Hub struct {
	config  Config
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics

	webhooks *webhook.Service
	crmSvc   *crm.Service
	dlqSvc   *dlq.Service
	builder  *payload.Builder
	sender   *delivery.Sender
	engine   *delivery.Engine
}

// New creates a Hub. A store is required; everything else has defaults.
func New(opts ...Option) (*Hub, error) {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		return nil, ErrNoStore
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewLimiter()
	}

	h := &Hub{
		config:  o.config,
		store:   o.store,
		logger:  o.logger,
		metrics: o.metrics,
	}

	h.webhooks = webhook.NewService(o.store, o.logger)
	h.dlqSvc = dlq.NewService(o.store, o.store, o.config.MaxRetries, o.logger)
	h.builder = payload.NewBuilder(o.store)
	h.sender = delivery.NewSender(o.config.RequestTimeout)

	// The Hub itself is the emitter: every CRM mutation fans out through Emit.
	h.crmSvc = crm.NewService(o.store, h, o.logger)

	h.engine = delivery.NewEngine(o.store, h.dlqSvc, delivery.EngineConfig{
		Concurrency:    o.config.Concurrency,
		PollInterval:   o.config.PollInterval,
		BatchSize:      o.config.BatchSize,
		RequestTimeout: o.config.RequestTimeout,
		RetrySchedule:  o.config.RetrySchedule,
		Limiter:        o.limiter,
		Metrics:        o.metrics,
		Tracer:         o.tracer,
	}, o.logger)

	return h, nil
}

// Start launches the delivery engine.
func (h *Hub) Start(ctx context.Context) {
	h.engine.Start(ctx)
	h.logger.InfoContext(ctx, "leadwire started",
		"concurrency", h.config.Concurrency,
		"poll_interval", h.config.PollInterval,
	)
}

// Stop shuts down the delivery engine, waiting up to ShutdownTimeout for
// in-flight deliveries.
func (h *Hub) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, h.config.ShutdownTimeout)
	defer cancel()
	h.engine.Stop(ctx)
	h.logger.Info("leadwire stopped")
}

// Emit fans a domain event out to all matching webhooks: resolve subscribers,
// build the payload once, and enqueue one pending delivery per webhook.
//
// Emit never returns an error and never performs network I/O; failures are
// logged and the mutation that triggered the event is unaffected. It
// implements crm.Emitter.
func (h *Hub) Emit(ctx context.Context, name event.Name, snapshot any, actor event.Actor) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "emit panic recovered", "event", name, "panic", rec)
		}
	}()

	if !event.IsValid(name) {
		h.logger.ErrorContext(ctx, "emit rejected", "event", name, "error", ErrUnknownEvent)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordEvent(name.String())
	}

	whs, err := h.store.Resolve(ctx, name)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve webhooks failed", "event", name, "error", err)
		return
	}
	if len(whs) == 0 {
		return
	}

	body, err := h.builder.Build(ctx, event.Event{
		Name:       name,
		Entity:     snapshot,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "build payload failed", "event", name, "error", err)
		return
	}
	raw, err := json.Marshal(body)
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal payload failed", "event", name, "error", err)
		return
	}

	now := time.Now().UTC()
	ds := make([]*delivery.Delivery, 0, len(whs))
	for _, wh := range whs {
		ds = append(ds, &delivery.Delivery{
			Entity:        entity.New(),
			ID:            id.NewDeliveryID(),
			WebhookID:     wh.ID,
			Event:         name,
			Payload:       raw,
			State:         delivery.StatePending,
			MaxAttempts:   h.config.MaxRetries,
			NextAttemptAt: now,
		})
	}

	if err := h.store.EnqueueBatch(ctx, ds); err != nil {
		h.logger.ErrorContext(ctx, "enqueue deliveries failed",
			"event", name, "webhooks", len(ds), "error", err)
		return
	}

	if h.metrics != nil {
		h.metrics.PendingDeliveries.Add(float64(len(ds)))
	}

	h.logger.DebugContext(ctx, "event fanned out", "event", name, "deliveries", len(ds))
}

// Webhooks returns the webhook registry service.
func (h *Hub) Webhooks() *webhook.Service { return h.webhooks }

// CRM returns the CRM mutation service.
func (h *Hub) CRM() *crm.Service { return h.crmSvc }

// DLQ returns the dead letter queue service.
func (h *Hub) DLQ() *dlq.Service { return h.dlqSvc }

// Sender returns the HTTP delivery sender, for synchronous test deliveries.
func (h *Hub) Sender() *delivery.Sender { return h.sender }

// Store returns the underlying store.
func (h *Hub) Store() store.Store { return h.store }
