package domain

import (
	"context"
	"fmt"
)

// HoldRequest opens a pre-authorization for the estimated session amount.
type HoldRequest struct {
	AmountCents    int64
	Currency       string
	EndUserRef     string
	SessionRef     string
	IdempotencyKey string
}

type HoldResult struct {
	IntentID string
}

// CaptureResult carries the amount the processor reports as captured, the
// only figure the engine trusts.
type CaptureResult struct {
	CapturedAmountCents int64
}

// Processor is the outbound payment-provider client. Every call carries a
// bounded timeout; a call past that bound fails rather than hangs.
type Processor interface {
	CreateHold(ctx context.Context, req HoldRequest) (*HoldResult, error)
	Capture(ctx context.Context, intentID string, amountCents int64) (*CaptureResult, error)
	Cancel(ctx context.Context, intentID string) error
}

// ProcessorError is a decline surfaced by the provider, preserved for
// diagnostics on the session row.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor declined: %s (%s)", e.Message, e.Code)
}
