package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/signature"
	"github.com/leadwire/leadwire/webhook"
)

const maxResponseBody = 1024 // 1KB cap on response body storage

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// OK reports whether the attempt got a 2xx response.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender performs HTTP webhook delivery.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send POSTs a payload to a webhook and returns the result. The body is
// signed with the webhook's secret when one is configured; unsigned
// deliveries carry no signature header.
func (s *Sender) Send(ctx context.Context, wh *webhook.Webhook, name event.Name, deliveryID id.ID, body []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	// Standard headers.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Leadwire/1.0")
	req.Header.Set("X-Webhook-Event", name.String())
	if !deliveryID.IsNil() {
		req.Header.Set("X-Webhook-Delivery-ID", deliveryID.String())
	}

	// HMAC signature over the exact body bytes, present iff a secret is set.
	if wh.Secret != "" {
		req.Header.Set(signature.Header, signature.Sign(body, wh.Secret))
	}

	// Custom webhook headers.
	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G107: destination URL comes from webhook config
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}
