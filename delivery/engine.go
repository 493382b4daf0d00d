package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/observability"
	"github.com/leadwire/leadwire/ratelimit"
	"github.com/leadwire/leadwire/webhook"
)

// EngineStore is the interface the engine needs for delivery operations.
type EngineStore interface {
	Dequeue(ctx context.Context, limit int) ([]*Delivery, error)
	UpdateDelivery(ctx context.Context, d *Delivery) error
	GetWebhook(ctx context.Context, whID id.ID) (*webhook.Webhook, error)
	SetActive(ctx context.Context, whID id.ID, active bool) error
	MarkTriggered(ctx context.Context, whID id.ID, ts time.Time) error
}

// DLQPusher pushes permanently failed deliveries to the dead letter queue.
type DLQPusher interface {
	PushFailed(ctx context.Context, d *Delivery, wh *webhook.Webhook, lastError string, lastStatusCode int) error
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency    int
	PollInterval   time.Duration
	BatchSize      int
	RequestTimeout time.Duration
	RetrySchedule  []time.Duration
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Engine is the delivery worker pool that dequeues and processes deliveries.
// All network I/O happens here, off the mutation request path.
type Engine struct {
	store   EngineStore
	sender  *Sender
	retrier *Retrier
	dlq     DLQPusher
	config  EngineConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a delivery engine.
func NewEngine(store EngineStore, dlq DLQPusher, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		sender:  NewSender(cfg.RequestTimeout),
		retrier: NewRetrier(cfg.RetrySchedule),
		dlq:     dlq,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the delivery workers and poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight deliveries to complete.
func (e *Engine) Stop(_ context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// pollLoop periodically dequeues pending deliveries and dispatches them to workers.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.Dequeue(ctx, e.config.BatchSize)
			if err != nil {
				e.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				continue
			}

			for _, d := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(del *Delivery) {
					defer e.wg.Done()
					defer func() { <-sem }()
					e.process(ctx, del)
				}(d)
			}
		}
	}
}

// process handles a single delivery: fetch webhook, send, decide, update.
// One delivery's failure never touches another's: each runs in its own
// worker against its own record.
func (e *Engine) process(ctx context.Context, d *Delivery) {
	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartDeliverySpan(ctx, d.ID.String(), d.Event.String(), d.WebhookID.String())
	}

	wh, err := e.store.GetWebhook(ctx, d.WebhookID)
	if err != nil {
		if errors.Is(err, webhook.ErrNotFound) {
			// Webhook deleted after enqueue: the delivery has nowhere to go.
			now := time.Now().UTC()
			d.State = StateFailed
			d.LastError = "webhook no longer exists"
			d.CompletedAt = &now
			e.finish(ctx, d, span)
			return
		}
		// Store hiccup. Leave the delivery pending so a later poll retries
		// it instead of dropping the event.
		e.logger.ErrorContext(ctx, "get webhook failed",
			"delivery_id", d.ID, "webhook_id", d.WebhookID, "error", err)
		d.NextAttemptAt = time.Now().UTC().Add(time.Second)
		e.finish(ctx, d, span)
		return
	}

	if !wh.Active {
		now := time.Now().UTC()
		d.State = StateFailed
		d.LastError = "webhook inactive"
		d.CompletedAt = &now
		e.finish(ctx, d, span)
		return
	}

	// Per-webhook rate limit. A skipped delivery is rescheduled without an
	// attempt and without touching lastTriggered.
	if e.config.Limiter != nil && !e.config.Limiter.Allow(wh.ID.String(), wh.RateLimit) {
		d.NextAttemptAt = time.Now().UTC().Add(time.Second)
		e.finish(ctx, d, span)
		return
	}

	// Perform the HTTP delivery.
	d.AttemptCount++
	result := e.sender.Send(ctx, wh, d.Event, d.ID, d.Payload)

	// The attempt reached the network layer: record lastTriggered,
	// best-effort, success or failure alike.
	if markErr := e.store.MarkTriggered(ctx, wh.ID, time.Now().UTC()); markErr != nil {
		e.logger.ErrorContext(ctx, "mark triggered failed",
			"webhook_id", wh.ID, "error", markErr)
	}

	// Record result on delivery.
	d.LastError = result.Error
	d.LastStatusCode = result.StatusCode
	d.LastResponse = result.Response
	d.LastLatencyMs = result.LatencyMs

	latencySeconds := float64(result.LatencyMs) / 1000.0

	// Decide what to do next.
	decision := e.retrier.Decide(result, d)

	switch decision {
	case Delivered:
		now := time.Now().UTC()
		d.State = StateDelivered
		d.CompletedAt = &now
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("delivered", latencySeconds)
			e.config.Metrics.PendingDeliveries.Dec()
		}
		e.logger.DebugContext(ctx, "delivered",
			"delivery_id", d.ID, "webhook_id", wh.ID, "event", d.Event,
			"status", result.StatusCode, "latency_ms", result.LatencyMs)

	case Retry:
		d.NextAttemptAt = e.retrier.ComputeNextAttempt(d.AttemptCount)
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("retried", latencySeconds)
		}
		e.logger.DebugContext(ctx, "retry scheduled",
			"delivery_id", d.ID, "webhook_id", wh.ID, "event", d.Event,
			"attempt", d.AttemptCount, "next_at", d.NextAttemptAt)

	case DLQ:
		now := time.Now().UTC()
		d.State = StateFailed
		d.CompletedAt = &now
		if e.dlq != nil {
			if dlqErr := e.dlq.PushFailed(ctx, d, wh, result.Error, result.StatusCode); dlqErr != nil {
				e.logger.ErrorContext(ctx, "push to DLQ failed",
					"delivery_id", d.ID, "error", dlqErr)
			}
		}
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("failed", latencySeconds)
			e.config.Metrics.PendingDeliveries.Dec()
			e.config.Metrics.DLQSize.Inc()
		}
		e.logger.WarnContext(ctx, "delivery failed permanently",
			"delivery_id", d.ID, "webhook_id", wh.ID, "event", d.Event,
			"status", result.StatusCode, "error", result.Error)

	case DisableWebhook:
		now := time.Now().UTC()
		d.State = StateFailed
		d.CompletedAt = &now
		if disableErr := e.store.SetActive(ctx, d.WebhookID, false); disableErr != nil {
			e.logger.ErrorContext(ctx, "deactivate webhook failed",
				"webhook_id", d.WebhookID, "error", disableErr)
		}
		if e.dlq != nil {
			if dlqErr := e.dlq.PushFailed(ctx, d, wh, result.Error, result.StatusCode); dlqErr != nil {
				e.logger.ErrorContext(ctx, "push to DLQ failed",
					"delivery_id", d.ID, "error", dlqErr)
			}
		}
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("failed", latencySeconds)
			e.config.Metrics.PendingDeliveries.Dec()
			e.config.Metrics.DLQSize.Inc()
		}
		e.logger.WarnContext(ctx, "webhook deactivated (410 Gone)",
			"webhook_id", d.WebhookID, "delivery_id", d.ID)
	}

	e.finish(ctx, d, span)
}

// finish ends the span (if any) and persists the delivery record.
func (e *Engine) finish(ctx context.Context, d *Delivery, span trace.Span) {
	if span != nil {
		e.config.Tracer.EndDeliverySpan(span, d.LastStatusCode, d.LastLatencyMs, d.LastError)
	}

	if updateErr := e.store.UpdateDelivery(ctx, d); updateErr != nil {
		e.logger.ErrorContext(ctx, "update delivery failed",
			"delivery_id", d.ID, "error", updateErr)
	}
}
