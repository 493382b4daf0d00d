package webhook

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
	"github.com/leadwire/leadwire/internal/entity"
	"github.com/leadwire/leadwire/signature"
)

// Service provides webhook registry management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new webhook service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create registers a new webhook.
func (svc *Service) Create(ctx context.Context, in Input) (*Webhook, error) {
	if err := validateInput(in, true); err != nil {
		return nil, err
	}

	secret := ""
	if in.Secret != nil {
		secret = *in.Secret
	}
	if secret == "" {
		secret = signature.GenerateSecret()
	}

	wh := &Webhook{
		Entity:  entity.New(),
		ID:      id.NewWebhookID(),
		Name:    in.Name,
		URL:     in.URL,
		Events:  in.Events,
		Headers: in.Headers,
		Secret:  secret,
		Active:  true,
	}
	if in.Active != nil {
		wh.Active = *in.Active
	}
	if in.RateLimit > 0 {
		wh.RateLimit = in.RateLimit
	}

	if err := svc.store.CreateWebhook(ctx, wh); err != nil {
		return nil, err
	}

	return wh, nil
}

// Get returns a webhook by ID.
func (svc *Service) Get(ctx context.Context, whID id.ID) (*Webhook, error) {
	return svc.store.GetWebhook(ctx, whID)
}

// Update modifies an existing webhook. Zero-valued fields are left unchanged.
func (svc *Service) Update(ctx context.Context, whID id.ID, in Input) (*Webhook, error) {
	wh, err := svc.store.GetWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}

	if err := validateInput(in, false); err != nil {
		return nil, err
	}

	if in.Name != "" {
		wh.Name = in.Name
	}
	if in.URL != "" {
		wh.URL = in.URL
	}
	if len(in.Events) > 0 {
		wh.Events = in.Events
	}
	if in.Headers != nil {
		wh.Headers = in.Headers
	}
	if in.Secret != nil {
		wh.Secret = *in.Secret
	}
	if in.Active != nil {
		wh.Active = *in.Active
	}
	if in.RateLimit > 0 {
		wh.RateLimit = in.RateLimit
	}

	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return nil, err
	}

	return wh, nil
}

// Delete removes a webhook.
func (svc *Service) Delete(ctx context.Context, whID id.ID) error {
	return svc.store.DeleteWebhook(ctx, whID)
}

// List returns webhooks, optionally filtered.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Webhook, error) {
	return svc.store.ListWebhooks(ctx, opts)
}

// SetActive activates or deactivates a webhook.
func (svc *Service) SetActive(ctx context.Context, whID id.ID, active bool) error {
	return svc.store.SetActive(ctx, whID, active)
}

// RotateSecret generates a new signing secret for a webhook.
func (svc *Service) RotateSecret(ctx context.Context, whID id.ID) (string, error) {
	wh, err := svc.store.GetWebhook(ctx, whID)
	if err != nil {
		return "", err
	}

	newSecret := signature.GenerateSecret()

	wh.Secret = newSecret
	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return "", err
	}

	return newSecret, nil
}

// MarkTriggered records the latest delivery attempt timestamp. Best-effort:
// a store failure is logged and swallowed so it can never fail the parent
// delivery flow.
func (svc *Service) MarkTriggered(ctx context.Context, whID id.ID, ts time.Time) {
	if err := svc.store.MarkTriggered(ctx, whID, ts); err != nil {
		svc.logger.ErrorContext(ctx, "mark triggered failed",
			"webhook_id", whID, "error", err)
	}
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "webhook validation: " + e.Field + ": " + e.Message
}

// validateInput checks a create (required=true) or update (required=false)
// payload. On update, empty fields mean "unchanged" and are not checked.
func validateInput(in Input, required bool) error {
	if in.URL != "" || required {
		u, err := url.Parse(in.URL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return &ValidationError{Field: "url", Message: "must be an absolute URL"}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return &ValidationError{Field: "url", Message: "scheme must be http or https"}
		}
	}

	if required && len(in.Events) == 0 {
		return &ValidationError{Field: "events", Message: "at least one event pattern required"}
	}
	for _, pattern := range in.Events {
		if !event.ValidPattern(pattern) {
			return &ValidationError{Field: "events", Message: "unknown event pattern " + pattern}
		}
	}

	for name, value := range in.Headers {
		if !validHeaderName(name) {
			return &ValidationError{Field: "headers", Message: "invalid header name " + name}
		}
		if strings.ContainsAny(value, "\r\n") {
			return &ValidationError{Field: "headers", Message: "header value must not contain CR/LF"}
		}
	}

	return nil
}

// validHeaderName checks an HTTP header field name against the token grammar.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", c):
		default:
			return false
		}
	}
	return true
}
