package leadwire

import (
	"log/slog"
	"time"

	"github.com/leadwire/leadwire/observability"
	"github.com/leadwire/leadwire/ratelimit"
	"github.com/leadwire/leadwire/store"
)

// Option configures a Hub.
type Option func(*options)

type options struct {
	store   store.Store
	logger  *slog.Logger
	config  Config
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// WithStore sets the persistence backend. Required.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.config.Concurrency = n
		}
	}
}

// WithPollInterval sets how often the engine checks for pending deliveries.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.config.PollInterval = d
		}
	}
}

// WithBatchSize sets the maximum deliveries dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.config.BatchSize = n
		}
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.config.RequestTimeout = d
		}
	}
}

// WithMaxRetries sets the maximum delivery attempts per webhook. Set to 1
// for fire-once semantics.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.config.MaxRetries = n
		}
	}
}

// WithRetrySchedule sets the backoff intervals between retry attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(o *options) {
		if len(schedule) > 0 {
			o.config.RetrySchedule = schedule
		}
	}
}

// WithShutdownTimeout sets the maximum wait for in-flight deliveries on Stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.config.ShutdownTimeout = d
		}
	}
}

// WithRateLimiter sets the per-webhook rate limiter. Defaults to a fresh
// in-process token bucket limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithMetrics wires Prometheus metrics collection.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer wires OpenTelemetry span creation around delivery attempts.
func WithTracer(t *observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
