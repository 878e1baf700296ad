package events

// Billing event types consumed by downstream exporters and notifiers.
const (
	EventSessionBilled   = "session.billed"
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventPayoutCommitted = "payout.committed"
	EventPayoutCancelled = "payout.cancelled"
	EventCDRMatched      = "cdr.matched"
	EventCDRDisputed     = "cdr.disputed"
)

// SessionBilledPayload captures the minimal data to roll up a billed session.
type SessionBilledPayload struct {
	SessionID             string  `json:"session_id"`
	WorkspaceID           string  `json:"workspace_id"`
	GrossAmount           float64 `json:"gross_amount"`
	PlatformFeeAmount     float64 `json:"platform_fee_amount"`
	OperatorEarningAmount float64 `json:"operator_earning_amount"`
	Currency              string  `json:"currency"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SessionBilledPayload) ToMap() map[string]any {
	return map[string]any{
		"session_id":              p.SessionID,
		"workspace_id":            p.WorkspaceID,
		"gross_amount":            p.GrossAmount,
		"platform_fee_amount":     p.PlatformFeeAmount,
		"operator_earning_amount": p.OperatorEarningAmount,
		"currency":                p.Currency,
	}
}

// PayoutCommittedPayload identifies a committed payout statement.
type PayoutCommittedPayload struct {
	StatementID  string `json:"statement_id"`
	WorkspaceID  string `json:"workspace_id"`
	SessionCount int    `json:"session_count"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PayoutCommittedPayload) ToMap() map[string]any {
	return map[string]any{
		"statement_id":  p.StatementID,
		"workspace_id":  p.WorkspaceID,
		"session_count": p.SessionCount,
	}
}
