package webhook

// Input is the creation/update payload for webhooks.
type Input struct {
	// Name is the display label.
	Name string `json:"name"`

	// URL is the destination HTTP endpoint.
	URL string `json:"url"`

	// Events are the subscribed event patterns. At least one is required.
	Events []string `json:"events"`

	// Headers are custom HTTP headers merged into every delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Secret is the HMAC signing secret. Auto-generated when omitted on
	// create. On update, nil means unchanged and an explicit empty string
	// clears the secret so deliveries go unsigned.
	Secret *string `json:"secret"`

	// Active toggles delivery selection. Nil means unchanged (true on create).
	Active *bool `json:"active"`

	// RateLimit is the maximum deliveries per minute. 0 means unlimited.
	RateLimit int `json:"rate_limit"`
}
