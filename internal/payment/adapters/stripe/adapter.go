// Package stripe verifies and parses Stripe webhook deliveries.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
)

const (
	providerName    = "stripe"
	signatureHeader = "Stripe-Signature"

	// Deliveries older than this fail verification to blunt replay.
	signatureTolerance = 5 * time.Minute
)

type factory struct{}

func NewFactory() paymentdomain.AdapterFactory { return &factory{} }

func (f *factory) Provider() string { return providerName }

func (f *factory) NewAdapter(config paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(config.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidProvider
	}
	return &adapter{secret: []byte(secret)}, nil
}

type adapter struct {
	secret []byte
}

// Verify checks the v1 signature scheme: HMAC-SHA256 over
// "<timestamp>.<payload>" keyed with the endpoint secret.
func (a *adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	header := strings.TrimSpace(headers.Get(signatureHeader))
	if header == "" {
		return paymentdomain.ErrInvalidSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return paymentdomain.ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := time.Since(time.Unix(seconds, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

type envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object paymentIntent `json:"object"`
	} `json:"data"`
}

type paymentIntent struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	AmountReceived   int64  `json:"amount_received"`
	Currency         string `json:"currency"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (a *adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var raw envelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Data.Object.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	event := &paymentdomain.PaymentEvent{
		Provider:        providerName,
		ProviderEventID: raw.ID,
		PaymentIntentID: raw.Data.Object.ID,
		Currency:        strings.ToUpper(strings.TrimSpace(raw.Data.Object.Currency)),
		OccurredAt:      time.Unix(raw.Created, 0).UTC(),
	}

	switch raw.Type {
	case "payment_intent.succeeded":
		event.Type = paymentdomain.EventTypePaymentSucceeded
		event.AmountCents = raw.Data.Object.AmountReceived
		if event.AmountCents == 0 {
			event.AmountCents = raw.Data.Object.Amount
		}
	case "payment_intent.payment_failed":
		event.Type = paymentdomain.EventTypePaymentFailed
		if raw.Data.Object.LastPaymentError != nil {
			event.ErrorCode = raw.Data.Object.LastPaymentError.Code
			event.ErrorMessage = raw.Data.Object.LastPaymentError.Message
		}
	default:
		// Holds emit amount_capturable_updated and friends; only the two
		// settlement events drive the state machine.
		return nil, paymentdomain.ErrEventIgnored
	}

	return event, nil
}
