package domain

import (
	"context"
	"net/http"
)

// PaymentAdapter verifies and parses one provider's webhook payloads.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(config AdapterConfig) (PaymentAdapter, error)
}
