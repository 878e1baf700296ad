package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
)

// CreateHoldRequest pre-authorizes the estimated amount for a session.
type CreateHoldRequest struct {
	SessionID snowflake.ID
	AmountEur float64
	// Currency defaults to the session's currency when empty.
	Currency string
}

type Service interface {
	// CreateHold opens a pre-authorization with the processor and mirrors
	// the intent onto the session (NONE -> HOLD_PENDING -> HOLD_OK, or
	// FAILED with the processor's error recorded).
	CreateHold(ctx context.Context, req CreateHoldRequest) (*sessiondomain.ChargingSession, error)

	// CaptureHold finalizes the held payment. amountEur nil means the
	// session's billed gross amount. Already-captured sessions return
	// ErrAlreadyCaptured without a processor call; an amount above the
	// hold moves the session to PARTIAL_FAILED and surfaces
	// ErrCaptureExceedsHold instead of silently correcting.
	CaptureHold(ctx context.Context, sessionID snowflake.ID, amountEur *float64) (*sessiondomain.ChargingSession, error)

	// CancelHold releases an open hold, a terminal forward transition.
	CancelHold(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error)

	// IngestWebhook verifies, records, and applies one provider delivery.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error

	// ApplyWebhookEvent advances the matched session's payment state when
	// the event proposes a legal forward transition. Returns false when
	// nothing was applied: unknown intent, or a duplicate/out-of-order
	// event absorbed by the state guard.
	ApplyWebhookEvent(ctx context.Context, event *PaymentEvent) (bool, error)
}

var (
	ErrSessionNotFound       = errors.New("session_not_found")
	ErrSessionNotBilled      = errors.New("session_not_billed")
	ErrHoldAlreadyOpen       = errors.New("hold_already_open")
	ErrNoOpenHold            = errors.New("no_open_hold")
	ErrAlreadyCaptured       = errors.New("already_captured")
	ErrCaptureInFlight       = errors.New("capture_in_flight")
	ErrPaymentTerminal       = errors.New("payment_terminal")
	ErrCaptureExceedsHold    = errors.New("capture_exceeds_hold")
	ErrMissingIntent         = errors.New("missing_payment_intent")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrProcessorDeclined     = errors.New("processor_declined")
	ErrProcessorUnavailable  = errors.New("processor_unavailable")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
